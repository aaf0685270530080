package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawJSONProvider is implemented by API response types that keep the body they were decoded from.
type RawJSONProvider interface {
	RawJSON() string
}

// PrintPrettyJSON prints the raw JSON of an API response with indentation.
// Printing the original body keeps fields this client does not model and
// avoids the zero values that re-marshaling the Go struct would add. When
// there is no raw body (a value built locally) the struct is marshaled.
func PrintPrettyJSON(v RawJSONProvider) error {
	raw := v.RawJSON()
	if raw == "" {
		return PrintJSON(v)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}

// PrintJSON marshals v with indentation.
func PrintJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package validator

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

func typeIn(t signeddoc.UUIDv4, set []signeddoc.UUIDv4) bool {
	for _, want := range set {
		if t == want {
			return true
		}
	}
	return false
}

func typeNames(set []signeddoc.UUIDv4) string {
	names := make([]string, len(set))
	for i, t := range set {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

var schemaErrPrinter = message.NewPrinter(language.English)

// schemaViolations flattens a schema validation error into one line per leaf
// cause, each prefixed with the instance JSON Pointer.
func schemaViolations(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			ptr := "/" + strings.Join(e.InstanceLocation, "/")
			if len(e.InstanceLocation) == 0 {
				ptr = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", ptr, e.ErrorKind.LocalizedString(schemaErrPrinter)))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}

func parseInstance(data []byte) (any, error) {
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

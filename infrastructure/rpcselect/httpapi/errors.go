package httpapi

import "fmt"

func errNotFound(id string) error {
	return fmt.Errorf("endpoint %q not found", id)
}

func errInvalidChain(raw string) error {
	return fmt.Errorf("invalid chain id %q", raw)
}

func errInvalidURLParam(raw string) error {
	return fmt.Errorf("invalid url path segment %q", raw)
}

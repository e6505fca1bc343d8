package dapconfig

import (
	"errors"

	"github.com/tidwall/gjson"

	"dapboot/pkg/dapapi"
)

// ParseRequestKind maps the exact strings "launch" and "attach".
func ParseRequestKind(value string) (dapapi.RequestKind, error) {
	switch value {
	case "launch":
		return dapapi.RequestLaunch, nil
	case "attach":
		return dapapi.RequestAttach, nil
	}
	return "", &InvalidRequestKindError{Value: value}
}

// ClassifyRequest reads only the "request" key of config. Other fields may be
// unknown or incomplete.
func ClassifyRequest(adapterName string, config []byte) (dapapi.RequestKind, error) {
	if adapterName != AdapterName {
		return "", &UnknownAdapterError{Name: adapterName}
	}
	if !gjson.ValidBytes(config) {
		return "", &ConfigParseError{Err: errors.New("invalid JSON document")}
	}
	var (
		res   gjson.Result
		count int
	)
	gjson.ParseBytes(config).ForEach(func(key, value gjson.Result) bool {
		if key.Type == gjson.String && key.Str == "request" {
			res = value
			count++
		}
		return true
	})
	if count > 1 {
		return "", &ConfigParseError{Err: errors.New("duplicate field `request`")}
	}
	if !res.Exists() || res.Type != gjson.String {
		return "", ErrMissingRequestField
	}
	return ParseRequestKind(res.Str)
}

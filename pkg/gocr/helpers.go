package gocr

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// RawJSON renders a Document AI response as indented JSON for debug
// inspection.
func RawJSON(msg proto.Message) (string, error) {
	opts := protojson.MarshalOptions{Multiline: true, Indent: "  "}
	data, err := opts.Marshal(msg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

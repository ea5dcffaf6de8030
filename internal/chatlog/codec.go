package chatlog

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Entries are CBOR with Core Deterministic Encoding so the same message
// always produces identical bytes.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("chatlog: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic("chatlog: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeMessage(msg Message) ([]byte, error) {
	data, err := encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("chatlog: encode message: %w", err)
	}
	return data, nil
}

func decodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := decMode.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("chatlog: decode message: %w", err)
	}
	return msg, nil
}

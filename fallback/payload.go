// Copyright 2023 Kite Data, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package fallback packages unconvertible expression
// fragments as opaque closures. The native engine
// treats the payload bytes as opaque; the host-side
// execution runtime reconstructs the fragment with
// Open and evaluates it against a row of parameter
// values.
package fallback

import (
	"fmt"

	"github.com/kitedata/kite/expr"
	"github.com/kitedata/kite/wire"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Param describes one captured sub-expression slot of
// a fallback fragment, in positional order.
type Param struct {
	T        *expr.Type
	Nullable bool
}

// Payload is a serialized closure descriptor: the
// residual host fragment, its ordered parameter
// schema, and the declared return contract. Payloads
// are produced once during lowering and never mutated.
type Payload struct {
	// ID names the closure for registration with
	// the host runtime's opaque-callable mechanism.
	ID          uuid.UUID
	Fragment    expr.Node
	Params      []Param
	Ret         *expr.Type
	RetNullable bool
}

// Package serializes p without mutating it; a zero ID
// is stamped with a fresh random one in the encoded
// form only. The payload layout is the 16-byte ID
// followed by the zstd-compressed wire encoding.
func (p *Payload) Package() ([]byte, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var body wire.Buffer
	var st wire.Symtab
	body.BeginStruct()
	body.BeginField(st.Intern("fragment"))
	p.Fragment.Encode(&body, &st)
	body.BeginField(st.Intern("params"))
	body.BeginList()
	for i := range p.Params {
		body.BeginStruct()
		body.BeginField(st.Intern("item"))
		p.Params[i].T.Encode(&body, &st)
		body.BeginField(st.Intern("nullable"))
		body.WriteBool(p.Params[i].Nullable)
		body.EndStruct()
	}
	body.EndList()
	body.BeginField(st.Intern("ret"))
	p.Ret.Encode(&body, &st)
	body.BeginField(st.Intern("ret_nullable"))
	body.WriteBool(p.RetNullable)
	body.EndStruct()

	// the symbol table precedes the body so the
	// payload round-trips with no side information
	var head wire.Buffer
	st.Marshal(&head)
	raw := append(head.Bytes(), body.Bytes()...)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(id), len(id)+len(raw)/2)
	copy(out, id[:])
	out = enc.EncodeAll(raw, out)
	enc.Close()
	return out, nil
}

// Open reconstructs a payload produced by Package.
func Open(buf []byte) (*Payload, error) {
	if len(buf) < 16 {
		return nil, fmt.Errorf("fallback: payload too short (%d bytes)", len(buf))
	}
	p := &Payload{}
	copy(p.ID[:], buf[:16])

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(buf[16:], nil)
	if err != nil {
		return nil, fmt.Errorf("fallback: decompressing payload: %w", err)
	}

	var st wire.Symtab
	body, err := st.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("fallback: reading symbol table: %w", err)
	}
	err = wire.UnpackStruct(&st, body, func(name string, field []byte) error {
		var err error
		switch name {
		case "fragment":
			p.Fragment, _, err = expr.Decode(&st, field)
		case "params":
			return wire.UnpackList(field, func(item []byte) error {
				var pr Param
				err := wire.UnpackStruct(&st, item, func(name string, body []byte) error {
					var err error
					switch name {
					case "item":
						pr.T, _, err = expr.DecodeType(&st, body)
					case "nullable":
						pr.Nullable, _, err = wire.ReadBool(body)
					default:
						err = fmt.Errorf("unexpected param field %q", name)
					}
					return err
				})
				if err != nil {
					return err
				}
				p.Params = append(p.Params, pr)
				return nil
			})
		case "ret":
			p.Ret, _, err = expr.DecodeType(&st, field)
		case "ret_nullable":
			p.RetNullable, _, err = wire.ReadBool(field)
		default:
			err = fmt.Errorf("unexpected payload field %q", name)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return p, nil
}

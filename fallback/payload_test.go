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

package fallback

import (
	"testing"

	"github.com/kitedata/kite/expr"

	"github.com/google/uuid"
)

func samplePayload() *Payload {
	frag := &expr.Call{
		Func: "host_only",
		Args: []expr.Node{
			&expr.Param{Index: 0, T: expr.Int64T, Nul: true},
			&expr.Literal{Value: "suffix", T: expr.StringT},
			&expr.Param{Index: 0, T: expr.Int64T, Nul: true},
		},
		T:   expr.StringT,
		Nul: true,
		UDF: true,
	}
	return &Payload{
		Fragment:    frag,
		Params:      []Param{{T: expr.Int64T, Nullable: true}},
		Ret:         expr.StringT,
		RetNullable: true,
	}
}

func TestPayloadRoundtrip(t *testing.T) {
	want := samplePayload()
	buf, err := want.Package()
	if err != nil {
		t.Fatal(err)
	}
	if want.ID != uuid.Nil {
		t.Fatal("Package mutated the payload")
	}
	got, err := Open(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID == uuid.Nil {
		t.Error("no ID stamped into the payload")
	}
	if !got.Fragment.Equals(want.Fragment) {
		t.Error("fragment differs after round trip")
	}
	if len(got.Params) != 1 || !got.Params[0].T.Equals(expr.Int64T) || !got.Params[0].Nullable {
		t.Errorf("params = %+v", got.Params)
	}
	if !got.Ret.Equals(expr.StringT) || !got.RetNullable {
		t.Errorf("return contract %s nullable=%v", got.Ret, got.RetNullable)
	}
}

func TestPayloadKeepsID(t *testing.T) {
	want := samplePayload()
	want.ID = uuid.MustParse("a2b6bd38-4cfc-4f03-9a87-928b8f9ee502")
	buf, err := want.Package()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Open(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID {
		t.Errorf("ID %s, want %s", got.ID, want.ID)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("empty payload accepted")
	}
	if _, err := Open(make([]byte, 40)); err == nil {
		t.Error("garbage payload accepted")
	}
}

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

package lower

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Flags gate the optional extension scalar functions
// the native engine may or may not ship. Flags are
// read-only at lowering time; a disabled extension
// routes the affected expression through the generic
// fallback path instead.
type Flags struct {
	// CaseConvert enables the native upper/lower
	// case-conversion functions.
	CaseConvert bool `json:"case_convert"`
	// SparkHash enables the Spark-compatible
	// murmur3_hash and xxhash64 extension
	// functions.
	SparkHash bool `json:"spark_hash"`
	// BloomFilter enables native bloom-filter
	// membership probes.
	BloomFilter bool `json:"bloom_filter"`
}

// ParseFlags decodes a YAML (or JSON) flag document.
// Unknown keys are rejected so stale configuration
// does not silently disable extensions.
func ParseFlags(buf []byte) (Flags, error) {
	var f Flags
	if err := yaml.UnmarshalStrict(buf, &f); err != nil {
		return Flags{}, fmt.Errorf("lower: parsing flags: %w", err)
	}
	return f, nil
}

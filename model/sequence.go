/*
Copyright 2025 Vantage ERP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// EntityClass describes a document family that receives gap-free formatted
// sequence numbers. Numbers are derived by scanning the owning table for the
// lexicographically maximal value, which equals numeric order only because the
// numeric part is zero-padded to Width digits.
type EntityClass struct {
	Name   string
	Prefix string
	Table  string
	Column string
	Width  int
}

var entityClasses = map[string]EntityClass{
	"purchase":      {Name: "purchase", Prefix: "PUR", Table: "purchases", Column: "purchase_number", Width: 6},
	"sale_order":    {Name: "sale_order", Prefix: "SO", Table: "sale_orders", Column: "order_number", Width: 6},
	"shipment":      {Name: "shipment", Prefix: "SHP", Table: "shipments", Column: "shipment_number", Width: 6},
	"capital_entry": {Name: "capital_entry", Prefix: "CAP", Table: "capital_entries", Column: "sequence_number", Width: 6},
	"approval":      {Name: "approval", Prefix: "APR", Table: "approval_requests", Column: "request_number", Width: 6},
}

// EntityClassFor looks up a registered document family by name.
func EntityClassFor(name string) (EntityClass, error) {
	class, ok := entityClasses[name]
	if !ok {
		return EntityClass{}, fmt.Errorf("unknown entity class %q", name)
	}
	return class, nil
}

// MutexName is the lock name serializing number generation for this class.
func (c EntityClass) MutexName() string {
	return fmt.Sprintf("%s_number_generation", c.Name)
}

// MaxValue is the largest counter the fixed-width format can represent.
// Issuance past it is rejected rather than widening the format, so already
// issued numbers keep their lexicographic ordering guarantee.
func (c EntityClass) MaxValue() int64 {
	max := int64(1)
	for i := 0; i < c.Width; i++ {
		max *= 10
	}
	return max - 1
}

// Format renders a counter value as the class's fixed-width document number.
func (c EntityClass) Format(value int64) string {
	return fmt.Sprintf("%s-%0*d", c.Prefix, c.Width, value)
}

// Parse extracts the numeric counter from a formatted document number.
func (c EntityClass) Parse(number string) (int64, error) {
	suffix, ok := strings.CutPrefix(number, c.Prefix+"-")
	if !ok {
		return 0, fmt.Errorf("number %q does not carry prefix %s", number, c.Prefix)
	}
	value, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("number %q has a non-numeric suffix: %w", number, err)
	}
	return value, nil
}

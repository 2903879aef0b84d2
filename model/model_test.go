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
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMutexKeyDeterministic(t *testing.T) {
	first := MutexKey("capital_balance_operations")
	second := MutexKey("capital_balance_operations")
	assert.Equal(t, first, second)

	other := MutexKey(ResourceMutexName("filter_operation", "pur_123"))
	assert.NotEqual(t, first, other)
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("cap")
	assert.True(t, strings.HasPrefix(id, "cap_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("cap"))
}

func TestAmountsMatchTolerance(t *testing.T) {
	base := decimal.NewFromInt(1000)

	assert.True(t, AmountsMatch(base, decimal.NewFromInt(1000)))
	assert.True(t, AmountsMatch(base, decimal.NewFromFloat(1000.00)))
	assert.True(t, AmountsMatch(base, decimal.NewFromFloat(1000.01)))
	assert.True(t, AmountsMatch(base, decimal.NewFromFloat(999.99)))

	assert.False(t, AmountsMatch(base, decimal.NewFromFloat(1000.02)))
	assert.False(t, AmountsMatch(base, decimal.NewFromInt(1500)))
}

func TestCapitalEntryDirections(t *testing.T) {
	in := NewCapitalEntry(CapitalIn, decimal.NewFromInt(500), "USD", "seed capital", "user_1")
	assert.Equal(t, 1, in.Direction)
	assert.True(t, in.EffectiveAmount().Equal(decimal.NewFromInt(500)))

	out := NewCapitalEntry(CapitalOut, decimal.NewFromInt(200), "USD", "purchase funding", "user_1")
	assert.Equal(t, -1, out.Direction)
	assert.True(t, out.EffectiveAmount().Equal(decimal.NewFromInt(-200)))

	opening := NewCapitalEntry(CapitalOpening, decimal.NewFromInt(100), "USD", "opening", "user_1")
	assert.Equal(t, 1, opening.Direction)
}

func TestReversalEntryNetsToZero(t *testing.T) {
	out := NewCapitalEntry(CapitalOut, decimal.NewFromFloat(350.75), "USD", "funding", "user_1")
	reversal := out.NewReversalEntry("duplicate funding", "user_2")

	assert.Equal(t, CapitalReverse, reversal.Type)
	assert.Equal(t, out.EntryID, reversal.ReversesEntryID)
	assert.True(t, out.EffectiveAmount().Add(reversal.EffectiveAmount()).IsZero())
	assert.NoError(t, reversal.Validate())
}

func TestCapitalEntryValidate(t *testing.T) {
	entry := NewCapitalEntry(CapitalIn, decimal.NewFromInt(100), "USD", "seed", "user_1")
	assert.NoError(t, entry.Validate())

	entry.Amount = decimal.NewFromInt(-5)
	assert.Error(t, entry.Validate())

	entry = NewCapitalEntry(CapitalIn, decimal.NewFromInt(100), "DOLLARS", "seed", "user_1")
	assert.Error(t, entry.Validate())

	reversal := &CapitalEntry{
		EntryID:         GenerateUUIDWithSuffix("cap"),
		Type:            CapitalReverse,
		Amount:          decimal.NewFromInt(10),
		Direction:       1,
		PaymentCurrency: "USD",
		Description:     "reversal without pairing",
		CreatedBy:       "user_1",
	}
	assert.Error(t, reversal.Validate())
}

func TestEntityClassFormatAndParse(t *testing.T) {
	class, err := EntityClassFor("purchase")
	assert.NoError(t, err)
	assert.Equal(t, "PUR-000001", class.Format(1))
	assert.Equal(t, "PUR-004231", class.Format(4231))

	value, err := class.Parse("PUR-000042")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), value)

	_, err = class.Parse("SHP-000042")
	assert.Error(t, err)

	_, err = class.Parse("PUR-00OO42")
	assert.Error(t, err)

	_, err = EntityClassFor("unknown")
	assert.Error(t, err)
}

func TestEntityClassMaxValue(t *testing.T) {
	class, err := EntityClassFor("sale_order")
	assert.NoError(t, err)
	assert.Equal(t, int64(999999), class.MaxValue())
	assert.Equal(t, "SO-999999", class.Format(class.MaxValue()))
}

func TestEntityClassLexicographicOrder(t *testing.T) {
	class, err := EntityClassFor("shipment")
	assert.NoError(t, err)
	// Fixed-width padding is what makes string order equal numeric order.
	assert.True(t, class.Format(9) < class.Format(10))
	assert.True(t, class.Format(99999) < class.Format(100000))
}

func TestExtractEntityID(t *testing.T) {
	supplier := gofakeit.UUID()
	entityID, err := ExtractEntityID(OpPurchase, map[string]interface{}{"supplier_id": supplier})
	assert.NoError(t, err)
	assert.Equal(t, supplier, entityID)

	_, err = ExtractEntityID(OpPurchase, map[string]interface{}{"customer_id": "cus_1"})
	assert.Error(t, err)

	_, err = ExtractEntityID(OperationType("unregistered"), map[string]interface{}{})
	assert.Error(t, err)

	entityID, err = ExtractEntityID(OpSystemSettingChange, map[string]interface{}{"setting_key": "block_negative_balance"})
	assert.NoError(t, err)
	assert.Equal(t, "block_negative_balance", entityID)
}

func TestRegisterEntityIDExtractorOverride(t *testing.T) {
	op := OperationType("custom_op")
	RegisterEntityIDExtractor(op, func(data map[string]interface{}) (string, error) {
		return "fixed", nil
	})
	entityID, err := ExtractEntityID(op, nil)
	assert.NoError(t, err)
	assert.Equal(t, "fixed", entityID)
}

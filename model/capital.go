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
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// CapitalEntryType enumerates the movement kinds an immutable capital entry can record.
type CapitalEntryType string

const (
	CapitalIn      CapitalEntryType = "CAPITAL_IN"
	CapitalOut     CapitalEntryType = "CAPITAL_OUT"
	CapitalOpening CapitalEntryType = "OPENING"
	CapitalReverse CapitalEntryType = "REVERSE"
)

// CapitalEntry is an append-only row in the trading capital ledger. Entries are
// never updated or deleted once committed; a correction is recorded as a paired
// REVERSE entry whose direction is the negation of the entry it reverses.
type CapitalEntry struct {
	ID              int64                  `json:"-"`
	EntryID         string                 `json:"entry_id"`
	SequenceNumber  string                 `json:"sequence_number"`
	Type            CapitalEntryType       `json:"type"`
	Amount          decimal.Decimal        `json:"amount"`
	Direction       int                    `json:"direction"`
	PaymentCurrency string                 `json:"payment_currency"`
	ExchangeRate    *decimal.Decimal       `json:"exchange_rate,omitempty"`
	Reference       string                 `json:"reference,omitempty"`
	ReversesEntryID string                 `json:"reverses_entry_id,omitempty"`
	Description     string                 `json:"description"`
	CreatedBy       string                 `json:"created_by"`
	CreatedAt       time.Time              `json:"created_at"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
}

// direction returns the sign a given entry type contributes to the running balance.
func direction(entryType CapitalEntryType) int {
	switch entryType {
	case CapitalIn, CapitalOpening:
		return 1
	case CapitalOut:
		return -1
	}
	return 0
}

// NewCapitalEntry builds an entry with its id and direction assigned. REVERSE
// entries must be created with NewReversalEntry so the paired direction is carried.
func NewCapitalEntry(entryType CapitalEntryType, amount decimal.Decimal, currency, description, createdBy string) *CapitalEntry {
	return &CapitalEntry{
		EntryID:         GenerateUUIDWithSuffix("cap"),
		Type:            entryType,
		Amount:          amount,
		Direction:       direction(entryType),
		PaymentCurrency: currency,
		Description:     description,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now(),
	}
}

// NewReversalEntry builds the REVERSE entry paired to an existing entry. The
// reversal carries the original amount with the opposite direction, so the pair
// nets to zero against the running balance.
func (e *CapitalEntry) NewReversalEntry(reason, createdBy string) *CapitalEntry {
	return &CapitalEntry{
		EntryID:         GenerateUUIDWithSuffix("cap"),
		Type:            CapitalReverse,
		Amount:          e.Amount,
		Direction:       -e.Direction,
		PaymentCurrency: e.PaymentCurrency,
		ExchangeRate:    e.ExchangeRate,
		Reference:       e.Reference,
		ReversesEntryID: e.EntryID,
		Description:     reason,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now(),
	}
}

// EffectiveAmount is the entry's signed contribution to the running balance.
func (e *CapitalEntry) EffectiveAmount() decimal.Decimal {
	return e.Amount.Mul(decimal.NewFromInt(int64(e.Direction)))
}

// Validate checks the structural rules a capital entry must satisfy before it
// is handed to the ledger transaction manager.
func (e *CapitalEntry) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.EntryID, validation.Required),
		validation.Field(&e.Type, validation.Required, validation.In(CapitalIn, CapitalOut, CapitalOpening, CapitalReverse)),
		validation.Field(&e.Amount, validation.Required, validation.By(positiveAmount)),
		validation.Field(&e.Direction, validation.Required, validation.In(1, -1)),
		validation.Field(&e.PaymentCurrency, validation.Required, validation.Length(3, 3)),
		validation.Field(&e.Description, validation.Required),
		validation.Field(&e.CreatedBy, validation.Required),
		validation.Field(&e.ReversesEntryID, validation.Required.When(e.Type == CapitalReverse)),
	)
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok || !amount.IsPositive() {
		return validation.NewError("validation_amount", "amount must be greater than zero")
	}
	return nil
}

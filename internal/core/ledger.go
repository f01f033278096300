package core

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Ledger maps participant names to amounts, preserving first-insertion
// order. Lookups of unknown names return zero. The zero value is ready
// to use.
type Ledger struct {
	keys   []string
	values map[string]decimal.Decimal
}

// LedgerEntry is one name/amount pair of a Ledger.
type LedgerEntry struct {
	Name   string
	Amount decimal.Decimal
}

// NewLedger returns an empty ledger.
func NewLedger() Ledger {
	return Ledger{values: make(map[string]decimal.Decimal)}
}

// Add accumulates amount under name, creating the entry if absent.
func (l *Ledger) Add(name string, amount decimal.Decimal) {
	if l.values == nil {
		l.values = make(map[string]decimal.Decimal)
	}
	cur, ok := l.values[name]
	if !ok {
		l.keys = append(l.keys, name)
		l.values[name] = amount
		return
	}
	l.values[name] = cur.Add(amount)
}

// Get returns the amount for name, zero when absent.
func (l Ledger) Get(name string) decimal.Decimal {
	if v, ok := l.values[name]; ok {
		return v
	}
	return decimal.Zero
}

// Has reports whether name has an entry.
func (l Ledger) Has(name string) bool {
	_, ok := l.values[name]
	return ok
}

// Keys returns the names in insertion order.
func (l Ledger) Keys() []string {
	return append([]string(nil), l.keys...)
}

func (l Ledger) Len() int {
	return len(l.keys)
}

// Sum adds every amount in insertion order.
func (l Ledger) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, k := range l.keys {
		total = total.Add(l.values[k])
	}
	return total
}

// Entries returns the pairs in insertion order.
func (l Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, LedgerEntry{Name: k, Amount: l.values[k]})
	}
	return out
}

// Clone returns an independent copy.
func (l Ledger) Clone() Ledger {
	c := NewLedger()
	for _, k := range l.keys {
		c.Add(k, l.values[k])
	}
	return c
}

// Equal reports whether both ledgers hold the same names with equal
// amounts, regardless of order.
func (l Ledger) Equal(o Ledger) bool {
	if l.Len() != o.Len() {
		return false
	}
	for _, k := range l.keys {
		if !o.Has(k) || !o.Get(k).Equal(l.values[k]) {
			return false
		}
	}
	return true
}

// MergeLedgers sums a and b key-wise into a new ledger. Keys keep a's
// order followed by keys first seen in b. Neither input is modified.
func MergeLedgers(a, b Ledger) Ledger {
	out := a.Clone()
	for _, k := range b.keys {
		out.Add(k, b.values[k])
	}
	return out
}

// MarshalJSON writes the ledger as an object whose members follow
// insertion order.
func (l Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range l.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := l.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object written by MarshalJSON, keeping member
// order.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = NewLedger()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var amount decimal.Decimal
		if err := dec.Decode(&amount); err != nil {
			return err
		}
		l.Add(name, amount)
	}
	_, err := dec.Token()
	return err
}

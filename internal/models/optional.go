// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"fmt"
)

// OptionalID is a patch field that tells an absent key apart from an
// explicit null. Set is false when the key was absent.
type OptionalID struct {
	Set   bool
	Value *int64
}

// SomeID returns a set OptionalID holding id.
func SomeID(id int64) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

// NullID returns a set OptionalID holding null.
func NullID() OptionalID {
	return OptionalID{Set: true}
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("id must be an integer or null: %w", err)
	}
	o.Value = &v
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

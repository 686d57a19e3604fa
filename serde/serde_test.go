// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package serde

import "testing"

type lockHandle struct {
	Key    string
	LockID string
	TTLMs  int64
}

func lockTransformer() Transformer[lockHandle] {
	return Transformer[lockHandle]{
		Name:         "lock.v1",
		IsApplicable: func(value any) bool { _, ok := value.(lockHandle); return ok },
		Serialize: func(v lockHandle) (Record, error) {
			return Record{
				Version: 1,
				Fields: map[string]any{
					"key":    v.Key,
					"lockId": v.LockID,
					"ttlMs":  v.TTLMs,
				},
			}, nil
		},
		Deserialize: func(rec Record) (lockHandle, error) {
			return lockHandle{
				Key:    rec.Fields["key"].(string),
				LockID: rec.Fields["lockId"].(string),
				TTLMs:  rec.Fields["ttlMs"].(int64),
			}, nil
		},
	}
}

func TestRegistry_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	tag := Tag{Component: "lock", AdapterClass: "memory", Namespace: "app:"}
	RegisterCustom(reg, tag, lockTransformer())

	original := lockHandle{Key: "job-1", LockID: "abc", TTLMs: 5000}
	rec, err := reg.Serialize(tag, original)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	restored, err := reg.Deserialize(tag, rec)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	got, ok := restored.(lockHandle)
	if !ok {
		t.Fatalf("Deserialize() returned %T, want lockHandle", restored)
	}
	if got != original {
		t.Fatalf("round trip = %+v, want %+v", got, original)
	}
}

func TestRegistry_NamespaceIsolatesTags(t *testing.T) {
	reg := NewRegistry()
	appTag := Tag{Component: "lock", AdapterClass: "redis", Namespace: "app:"}
	otherTag := Tag{Component: "lock", AdapterClass: "redis", Namespace: "other:"}
	RegisterCustom(reg, appTag, lockTransformer())

	_, err := reg.Serialize(otherTag, lockHandle{Key: "k", LockID: "l", TTLMs: 1})
	if err == nil {
		t.Fatal("Serialize() on an unregistered tag should fail")
	}
}

func TestRegistry_SerializeUnapplicableValue(t *testing.T) {
	reg := NewRegistry()
	tag := Tag{Component: "cache", AdapterClass: "memory", Namespace: "ns:"}
	RegisterCustom(reg, tag, lockTransformer())

	_, err := reg.Serialize(tag, 42)
	if err == nil {
		t.Fatal("Serialize() of a non-applicable value should fail")
	}
}

func TestTag_String(t *testing.T) {
	tag := Tag{Component: "ratelimit", AdapterClass: "postgres", Namespace: "svc:"}
	want := "ratelimit/postgres/svc:"
	if got := tag.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

package storage

import (
	"errors"
	"reflect"
	"testing"

	"gopkg.in/yaml.v2"
)

// We test all BadgerDB read/write utility functions here for a simple case.
// All DB operations are wrapped in a helper for use by the fake
// mail-capturing service. We'll use these helpers, rather than ones defined
// just for tests.
func TestSimpleBadgerDBReadWrite(t *testing.T) {
	testCases := []struct {
		description string
		conf        KVConfig
	}{
		{
			description: "in memory",
			conf:        KVConfig{},
		},
		{
			description: "on disk",
			conf:        KVConfig{StorageDirPath: t.TempDir()},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			db, err := NewBadgerDB(&tc.conf)

			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()

			kv := KVEntry{
				Key:   []byte("Hello"),
				Value: []byte("World"),
			}

			err = db.Put(kv)

			if err != nil {
				t.Fatal(err)
			}

			kv2, err := db.Read(kv.Key)

			if err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(kv, kv2) {
				t.Fatal("newly created and newly read KV entries do not match")
			}
		})
	}
}

func TestBadgerDBListAndDeleteAll(t *testing.T) {
	db, err := NewBadgerDB(&KVConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// Inserted out of order to check that List sorts by key
	keys := []string{"b", "c", "a"}
	for _, k := range keys {
		if err := db.Put(KVEntry{Key: []byte(k), Value: []byte("value-" + k)}); err != nil {
			t.Fatal(err)
		}
	}

	l, err := db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(l) != len(keys) {
		t.Fatalf("expected %v entries but got %v", len(keys), len(l))
	}
	for i, expected := range []string{"a", "b", "c"} {
		if string(l[i].Key) != expected {
			t.Errorf("expected key %v at position %v but got %v", expected, i, string(l[i].Key))
		}
		if string(l[i].Value) != "value-"+expected {
			t.Errorf("unexpected value %v for key %v", string(l[i].Value), expected)
		}
	}

	if err := db.DeleteAll(); err != nil {
		t.Fatal(err)
	}

	l, err = db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(l) != 0 {
		t.Errorf("expected no entries after DeleteAll but got %v", len(l))
	}

	_, err = db.Read([]byte("a"))
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound but got %v", err)
	}
}

func TestKVConfig_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		expected string
		wantErr  bool
	}{
		{
			name:     "valid/canonical case",
			config:   `storageDir: ./tempTestDir3012705204`,
			expected: "./tempTestDir3012705204",
			wantErr:  false,
		},
		{
			name:     "no storage path means in memory",
			config:   `{}`,
			expected: "",
			wantErr:  false,
		},
		{
			name:    "not a JSON object",
			config:  `[]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c KVConfig
			err := yaml.Unmarshal([]byte(tt.config), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr = %v but got %v with err %v", tt.wantErr, err != nil, err)
			}
			if c.StorageDirPath != tt.expected {
				t.Errorf("expected storage path %q but got %q", tt.expected, c.StorageDirPath)
			}
		})
	}
}

package redisclient

import "testing"

func TestKey(t *testing.T) {
	c := &Client{prefix: "docsgate:"}
	if got := c.Key("spec", "abc"); got != "docsgate:spec:abc" {
		t.Errorf("Key() = %q", got)
	}

	bare := &Client{}
	if got := bare.Key("ratelimit", "x"); got != "ratelimit:x" {
		t.Errorf("Key() = %q", got)
	}
}

func TestNewInvalidURL(t *testing.T) {
	if _, err := New("not-a-redis-url", ""); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewValidURL(t *testing.T) {
	c, err := New("redis://localhost:6379/2", "docsgate:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if got := c.Unwrap().Options().DB; got != 2 {
		t.Errorf("DB = %d, want 2", got)
	}
}

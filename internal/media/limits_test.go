package media

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   []byte
		maxBytes  int64
		wantErr   error
		wantPlain bool
	}{
		{
			name:     "within limit",
			payload:  []byte("hello"),
			maxBytes: 8,
		},
		{
			name:     "over limit",
			payload:  []byte("0123456789"),
			maxBytes: 5,
			wantErr:  ErrAssetTooLarge,
		},
		{
			name:     "exact limit",
			payload:  []byte("12345"),
			maxBytes: 5,
		},
		{
			name:     "empty",
			payload:  nil,
			maxBytes: 5,
			wantErr:  ErrEmptyPayload,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadAllWithLimit(bytes.NewReader(tt.payload), tt.maxBytes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(tt.payload) {
				t.Fatalf("unexpected payload: %q", string(got))
			}
		})
	}
}

func TestReadAllWithLimitRejectsBadArguments(t *testing.T) {
	t.Parallel()

	if _, err := ReadAllWithLimit(nil, 10); err == nil {
		t.Fatal("expected error for nil reader")
	}
	if _, err := ReadAllWithLimit(bytes.NewReader([]byte("x")), 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

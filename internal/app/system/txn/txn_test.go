package txn

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"generic", errors.New("boom"), false},
		{"standalone code 20", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"code 263", mongo.CommandError{Code: 263, Message: "operation not allowed in a transaction"}, true},
		{"unrelated code", mongo.CommandError{Code: 11000, Message: "duplicate key"}, false},
		{"text replica set", errors.New("transaction requires a replica set"), true},
		{"text sessions", errors.New("sessions are not supported by this deployment"), true},
		{"just transaction", errors.New("transaction aborted"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_NilClientRunsDirectly(t *testing.T) {
	calls := 0
	err := Run(context.Background(), nil, zap.NewNop(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateDisconnected, StateConnecting, true},
		{StateDisconnected, StateReady, false},
		{StateConnecting, StateReady, true},
		{StateConnecting, StateFailed, true},
		{StateConnecting, StateDisconnected, true},
		{StateConnecting, StateDegraded, false},
		{StateReady, StateDegraded, true},
		{StateReady, StateDisconnected, true},
		{StateReady, StateConnecting, false},
		{StateDegraded, StateDisconnected, true},
		{StateDegraded, StateReady, false},
		{StateFailed, StateDisconnected, true},
		{StateFailed, StateReady, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "state(42)", State(42).String())
}

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInputValidator(t *testing.T) {
	validator := NewInputValidator(1024)

	assert.NotNil(t, validator)
	assert.Equal(t, int64(1024), validator.maxRequestSize)
	assert.NotEmpty(t, validator.validators)

	expectedOperations := []string{
		"createGame", "action", "undo", "restart", "rewind",
		"claimSeat", "updateName", "setReady", "addSlot", "removeSlot",
		"setSlotAI", "leaveSeat", "kickPlayer", "updatePlayerOptions",
		"updateSlotPlayerOptions", "updateGameOptions",
		"startAction", "selectionStep", "cancelAction",
		"matchmakingJoin", "matchmakingLeave",
		"ping", "getState", "getLobby",
	}

	for _, op := range expectedOperations {
		_, exists := validator.validators[op]
		assert.True(t, exists, "operation %s should be registered", op)
	}
}

func TestValidateRequest(t *testing.T) {
	validator := NewInputValidator(100)

	tests := []struct {
		name          string
		operation     string
		params        interface{}
		requestSize   int64
		expectError   bool
		errorContains string
	}{
		{
			name:          "request too large",
			operation:     "ping",
			params:        nil,
			requestSize:   200,
			expectError:   true,
			errorContains: "exceeds maximum",
		},
		{
			name:          "unknown operation",
			operation:     "unknownOperation",
			params:        nil,
			requestSize:   50,
			expectError:   true,
			errorContains: "unknown operation",
		},
		{
			name:        "valid ping request",
			operation:   "ping",
			params:      nil,
			requestSize: 50,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateRequest(tt.operation, tt.params, tt.requestSize)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCreateGame(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid game creation",
			params:      map[string]interface{}{"gameType": "tic-tac-toe", "playerCount": 2.0},
			expectError: false,
		},
		{
			name:          "missing gameType",
			params:        map[string]interface{}{"playerCount": 2.0},
			expectError:   true,
			errorContains: "requires 'gameType'",
		},
		{
			name:          "missing playerCount",
			params:        map[string]interface{}{"gameType": "tic-tac-toe"},
			expectError:   true,
			errorContains: "requires 'playerCount'",
		},
		{
			name:          "playerCount out of range",
			params:        map[string]interface{}{"gameType": "tic-tac-toe", "playerCount": 99.0},
			expectError:   true,
			errorContains: "out of valid range",
		},
		{
			name: "valid with aiPlayers",
			params: map[string]interface{}{
				"gameType": "tic-tac-toe", "playerCount": 2.0,
				"aiPlayers": []interface{}{2.0},
			},
			expectError: false,
		},
		{
			name: "invalid aiPlayers entry",
			params: map[string]interface{}{
				"gameType": "tic-tac-toe", "playerCount": 2.0,
				"aiPlayers": []interface{}{"two"},
			},
			expectError:   true,
			errorContains: "aiPlayers entries must be numbers",
		},
		{
			name:          "non-object parameters",
			params:        "not an object",
			expectError:   true,
			errorContains: "expects object parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateCreateGame(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAction(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid action",
			params:      map[string]interface{}{"action": "placeMark", "player": 1.0},
			expectError: false,
		},
		{
			name:          "missing action name",
			params:        map[string]interface{}{"player": 1.0},
			expectError:   true,
			errorContains: "requires 'action'",
		},
		{
			name:          "missing player seat",
			params:        map[string]interface{}{"action": "placeMark"},
			expectError:   true,
			errorContains: "missing required parameter: player",
		},
		{
			name:          "negative seat",
			params:        map[string]interface{}{"action": "placeMark", "player": -1.0},
			expectError:   true,
			errorContains: "non-negative integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateAction(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateClaimSeat(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid claim",
			params:      map[string]interface{}{"seat": 1.0, "name": "Ada"},
			expectError: false,
		},
		{
			name:          "missing seat",
			params:        map[string]interface{}{"name": "Ada"},
			expectError:   true,
			errorContains: "missing required parameter: seat",
		},
		{
			name:          "missing name",
			params:        map[string]interface{}{"seat": 1.0},
			expectError:   true,
			errorContains: "requires 'name'",
		},
		{
			name:          "empty name",
			params:        map[string]interface{}{"seat": 1.0, "name": ""},
			expectError:   true,
			errorContains: "cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateClaimSeat(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSetSlotAI(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid, no level",
			params:      map[string]interface{}{"seat": 2.0, "isAI": true},
			expectError: false,
		},
		{
			name:        "valid with level",
			params:      map[string]interface{}{"seat": 2.0, "isAI": true, "aiLevel": "hard"},
			expectError: false,
		},
		{
			name:          "invalid level",
			params:        map[string]interface{}{"seat": 2.0, "isAI": true, "aiLevel": "impossible"},
			expectError:   true,
			errorContains: "invalid AI level",
		},
		{
			name:          "missing isAI",
			params:        map[string]interface{}{"seat": 2.0},
			expectError:   true,
			errorContains: "requires boolean 'isAI'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateSetSlotAI(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMatchmakingJoin(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid join",
			params:      map[string]interface{}{"gameType": "chess", "playerCount": 2.0},
			expectError: false,
		},
		{
			name:          "playerCount too small",
			params:        map[string]interface{}{"gameType": "chess", "playerCount": 1.0},
			expectError:   true,
			errorContains: "out of valid range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateMatchmakingJoin(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name        string
		uuid        string
		expectError bool
	}{
		{
			name:        "valid UUID",
			uuid:        "12345678-1234-1234-1234-123456789abc",
			expectError: false,
		},
		{
			name:        "valid UUID with uppercase",
			uuid:        "12345678-1234-1234-1234-123456789ABC",
			expectError: false,
		},
		{
			name:        "invalid UUID format - too short",
			uuid:        "12345678-1234-1234-1234-123456789ab",
			expectError: true,
		},
		{
			name:        "invalid UUID format - missing dashes",
			uuid:        "123456781234123412341234123456789abc",
			expectError: true,
		},
		{
			name:        "invalid UUID format - invalid characters",
			uuid:        "12345678-1234-1234-1234-123456789abg",
			expectError: true,
		},
		{
			name:        "empty UUID",
			uuid:        "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUUID(tt.uuid)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePlayerName(t *testing.T) {
	tests := []struct {
		name        string
		playerName  string
		expectError bool
	}{
		{
			name:        "valid name",
			playerName:  "TestPlayer",
			expectError: false,
		},
		{
			name:        "valid name with spaces",
			playerName:  "Test Player",
			expectError: false,
		},
		{
			name:        "valid name with numbers",
			playerName:  "TestPlayer123",
			expectError: false,
		},
		{
			name:        "valid name with allowed punctuation",
			playerName:  "Test-Player_42.0",
			expectError: false,
		},
		{
			name:        "empty name",
			playerName:  "",
			expectError: true,
		},
		{
			name:        "name too long",
			playerName:  strings.Repeat("a", 51),
			expectError: true,
		},
		{
			name:        "name with invalid characters",
			playerName:  "Test<Player>",
			expectError: true,
		},
		{
			name:        "name with only whitespace",
			playerName:  "   ",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePlayerName(tt.playerName)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAILevel(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		expectError bool
	}{
		{name: "valid level - easy", level: "easy", expectError: false},
		{name: "valid level - expert", level: "expert", expectError: false},
		{name: "valid level with uppercase", level: "HARD", expectError: false},
		{name: "valid level with whitespace", level: " medium ", expectError: false},
		{name: "invalid level", level: "godlike", expectError: true},
		{name: "empty level", level: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAILevel(tt.level)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// Package validation provides comprehensive input validation for the HTTP and
// WebSocket surface of the game server. It ensures all user inputs are
// properly sanitized and validated before reaching a GameSession to prevent
// security vulnerabilities and maintain data integrity.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// InputValidator provides comprehensive input validation for session
// operations. It maintains a registry of validation functions per operation
// name and enforces size limits to prevent denial-of-service attacks.
type InputValidator struct {
	maxRequestSize int64
	validators     map[string]func(interface{}) error
}

// NewInputValidator creates a new InputValidator with the specified maximum
// request size. The maxRequestSize parameter limits the size of incoming
// requests to prevent DoS attacks.
func NewInputValidator(maxRequestSize int64) *InputValidator {
	validator := &InputValidator{
		maxRequestSize: maxRequestSize,
		validators:     make(map[string]func(interface{}) error),
	}

	validator.registerValidators()

	return validator
}

// ValidateRequest validates a named session operation by checking operation
// existence, request size limits, and running operation-specific rules.
func (v *InputValidator) ValidateRequest(operation string, params interface{}, requestSize int64) error {
	if requestSize > v.maxRequestSize {
		return fmt.Errorf("request size %d exceeds maximum allowed size %d", requestSize, v.maxRequestSize)
	}

	validator, exists := v.validators[operation]
	if !exists {
		return fmt.Errorf("unknown operation: %s", operation)
	}

	return validator(params)
}

// ValidateGameID validates a gameId path/query parameter. gameIds are
// process-unique opaque strings (UUIDs in this implementation).
func (v *InputValidator) ValidateGameID(gameID string) error {
	return validateUUID(gameID)
}

// registerValidators sets up validation rules for every HTTP and WebSocket
// operation the session layer accepts.
func (v *InputValidator) registerValidators() {
	// Game lifecycle
	v.validators["createGame"] = v.validateCreateGame
	v.validators["action"] = v.validateAction
	v.validators["undo"] = v.validateNoParams
	v.validators["restart"] = v.validateNoParams
	v.validators["rewind"] = v.validateRewind

	// Lobby slot lifecycle
	v.validators["claimSeat"] = v.validateClaimSeat
	v.validators["updateName"] = v.validateUpdateName
	v.validators["setReady"] = v.validateSetReady
	v.validators["addSlot"] = v.validateNoParams
	v.validators["removeSlot"] = v.validateSeatOnly
	v.validators["setSlotAI"] = v.validateSetSlotAI
	v.validators["leaveSeat"] = v.validateNoParams
	v.validators["kickPlayer"] = v.validateSeatOnly
	v.validators["updatePlayerOptions"] = v.validateUpdatePlayerOptions
	v.validators["updateSlotPlayerOptions"] = v.validateUpdateSlotPlayerOptions
	v.validators["updateGameOptions"] = v.validateUpdateGameOptions

	// Pending (multi-step) actions
	v.validators["startAction"] = v.validateAction
	v.validators["selectionStep"] = v.validateSelectionStep
	v.validators["cancelAction"] = v.validateNoParams

	// Matchmaking
	v.validators["matchmakingJoin"] = v.validateMatchmakingJoin
	v.validators["matchmakingLeave"] = v.validateNoParams

	// Read-only / control frames carry no body worth validating beyond shape.
	v.validators["ping"] = v.validateNoParams
	v.validators["getState"] = v.validateNoParams
	v.validators["getLobby"] = v.validateNoParams
}

func (v *InputValidator) validateNoParams(params interface{}) error {
	return nil
}

func (v *InputValidator) validateCreateGame(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("createGame expects object parameters")
	}

	gameType, exists := paramMap["gameType"]
	if !exists {
		return fmt.Errorf("createGame requires 'gameType' parameter")
	}
	gameTypeStr, ok := gameType.(string)
	if !ok || strings.TrimSpace(gameTypeStr) == "" {
		return fmt.Errorf("gameType must be a non-empty string")
	}

	playerCount, exists := paramMap["playerCount"]
	if !exists {
		return fmt.Errorf("createGame requires 'playerCount' parameter")
	}
	count, ok := playerCount.(float64)
	if !ok {
		return fmt.Errorf("playerCount must be a number")
	}
	if count < 1 || count > 16 {
		return fmt.Errorf("playerCount out of valid range (1-16)")
	}

	if aiPlayers, exists := paramMap["aiPlayers"]; exists {
		list, ok := aiPlayers.([]interface{})
		if !ok {
			return fmt.Errorf("aiPlayers must be an array of seat numbers")
		}
		for _, seat := range list {
			if _, ok := seat.(float64); !ok {
				return fmt.Errorf("aiPlayers entries must be numbers")
			}
		}
	}

	return nil
}

func (v *InputValidator) validateAction(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("action expects object parameters")
	}

	name, exists := paramMap["action"]
	if !exists {
		return fmt.Errorf("action requires 'action' (name) parameter")
	}
	nameStr, ok := name.(string)
	if !ok || strings.TrimSpace(nameStr) == "" {
		return fmt.Errorf("action name must be a non-empty string")
	}

	return validateSeat(paramMap, "player")
}

func (v *InputValidator) validateRewind(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("rewind expects object parameters")
	}

	idx, exists := paramMap["actionIndex"]
	if !exists {
		return fmt.Errorf("rewind requires 'actionIndex' parameter")
	}
	if f, ok := idx.(float64); !ok || f < 0 {
		return fmt.Errorf("actionIndex must be a non-negative number")
	}

	return nil
}

func (v *InputValidator) validateClaimSeat(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("claimSeat expects object parameters")
	}

	if err := validateSeat(paramMap, "seat"); err != nil {
		return err
	}

	name, exists := paramMap["name"]
	if !exists {
		return fmt.Errorf("claimSeat requires 'name' parameter")
	}
	nameStr, ok := name.(string)
	if !ok {
		return fmt.Errorf("name must be a string")
	}

	return validatePlayerName(nameStr)
}

func (v *InputValidator) validateUpdateName(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("updateName expects object parameters")
	}

	name, exists := paramMap["name"]
	if !exists {
		return fmt.Errorf("updateName requires 'name' parameter")
	}
	nameStr, ok := name.(string)
	if !ok {
		return fmt.Errorf("name must be a string")
	}

	return validatePlayerName(nameStr)
}

func (v *InputValidator) validateSetReady(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("setReady expects object parameters")
	}

	if _, ok := paramMap["ready"].(bool); !ok {
		return fmt.Errorf("setReady requires boolean 'ready' parameter")
	}

	return nil
}

func (v *InputValidator) validateSeatOnly(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected object parameters")
	}
	return validateSeat(paramMap, "seat")
}

func (v *InputValidator) validateSetSlotAI(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("setSlotAI expects object parameters")
	}

	if err := validateSeat(paramMap, "seat"); err != nil {
		return err
	}

	if _, ok := paramMap["isAI"].(bool); !ok {
		return fmt.Errorf("setSlotAI requires boolean 'isAI' parameter")
	}

	if level, exists := paramMap["aiLevel"]; exists {
		levelStr, ok := level.(string)
		if !ok {
			return fmt.Errorf("aiLevel must be a string")
		}
		return validateAILevel(levelStr)
	}

	return nil
}

func (v *InputValidator) validateUpdatePlayerOptions(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("updatePlayerOptions expects object parameters")
	}
	if _, exists := paramMap["playerOptions"]; !exists {
		return fmt.Errorf("updatePlayerOptions requires 'playerOptions' object")
	}
	return nil
}

func (v *InputValidator) validateUpdateSlotPlayerOptions(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("updateSlotPlayerOptions expects object parameters")
	}
	if err := validateSeat(paramMap, "seat"); err != nil {
		return err
	}
	if _, exists := paramMap["playerOptions"]; !exists {
		return fmt.Errorf("updateSlotPlayerOptions requires 'playerOptions' object")
	}
	return nil
}

func (v *InputValidator) validateUpdateGameOptions(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("updateGameOptions expects object parameters")
	}
	if _, exists := paramMap["gameOptions"]; !exists {
		return fmt.Errorf("updateGameOptions requires 'gameOptions' object")
	}
	return nil
}

func (v *InputValidator) validateSelectionStep(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("selectionStep expects object parameters")
	}

	if _, exists := paramMap["choice"]; !exists {
		return fmt.Errorf("selectionStep requires a 'choice' parameter")
	}

	return validateSeat(paramMap, "player")
}

func (v *InputValidator) validateMatchmakingJoin(params interface{}) error {
	paramMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("matchmakingJoin expects object parameters")
	}

	gameType, exists := paramMap["gameType"]
	if !exists {
		return fmt.Errorf("matchmakingJoin requires 'gameType' parameter")
	}
	if s, ok := gameType.(string); !ok || strings.TrimSpace(s) == "" {
		return fmt.Errorf("gameType must be a non-empty string")
	}

	playerCount, exists := paramMap["playerCount"]
	if !exists {
		return fmt.Errorf("matchmakingJoin requires 'playerCount' parameter")
	}
	if count, ok := playerCount.(float64); !ok || count < 2 || count > 16 {
		return fmt.Errorf("playerCount out of valid range (2-16)")
	}

	return nil
}

// Helper validation functions

func validateSeat(paramMap map[string]interface{}, field string) error {
	seat, exists := paramMap[field]
	if !exists {
		return fmt.Errorf("missing required parameter: %s", field)
	}

	seatFloat, ok := seat.(float64)
	if !ok {
		return fmt.Errorf("%s must be a number", field)
	}

	if seatFloat < 0 || seatFloat != float64(int(seatFloat)) {
		return fmt.Errorf("%s must be a non-negative integer seat", field)
	}

	return nil
}

func validateUUID(id string) error {
	// Basic UUID format validation (8-4-4-4-12 hex digits)
	uuidRegex := regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	if !uuidRegex.MatchString(id) {
		return fmt.Errorf("invalid UUID format: %s", id)
	}
	return nil
}

func validatePlayerName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 {
		return fmt.Errorf("player name cannot be empty")
	}

	if len(name) > 50 {
		return fmt.Errorf("player name cannot exceed 50 characters")
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("player name contains invalid UTF-8 characters")
	}

	nameRegex := regexp.MustCompile(`^[a-zA-Z0-9\s\-_'\.]+$`)
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("player name contains invalid characters")
	}

	return nil
}

func validateAILevel(level string) error {
	validLevels := []string{"easy", "medium", "hard", "expert"}

	level = strings.ToLower(strings.TrimSpace(level))

	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid AI level: %s", level)
}

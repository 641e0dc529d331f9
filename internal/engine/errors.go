// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Code identifies a precondition violation. Codes are stable strings so the
// transport layer can hand them to clients verbatim.
type Code string

const (
	CodeLobbyNotFound      Code = "LOBBY_NOT_FOUND"
	CodeGameAlreadyActive  Code = "GAME_ALREADY_ACTIVE"
	CodeNotEnoughPlayers   Code = "NOT_ENOUGH_PLAYERS"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeInvalidSeating     Code = "INVALID_SEATING"
	CodeNoActiveGame       Code = "NO_ACTIVE_GAME"
	CodeNotYourTurn        Code = "NOT_YOUR_TURN"
	CodeInvalidAction      Code = "INVALID_ACTION"
	CodeInvalidRaise       Code = "INVALID_RAISE"
	CodeActiveGameNotFound Code = "ACTIVE_GAME_NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodePlayerNotFound     Code = "PLAYER_NOT_FOUND"
	CodeInvalidWinner      Code = "INVALID_WINNER"
)

// RuleError reports a recoverable precondition violation. The operation that
// returned it left all persisted state unchanged.
type RuleError struct {
	Code Code

	// PlayerID names the offending player when one is identifiable, e.g.
	// which player lacks funds on game start. Nil UUID otherwise.
	PlayerID uuid.UUID
}

func (e *RuleError) Error() string {
	if e.PlayerID != uuid.Nil {
		return fmt.Sprintf("%s (player %s)", e.Code, e.PlayerID)
	}
	return string(e.Code)
}

// ruleErr builds a RuleError with no offending player.
func ruleErr(code Code) *RuleError {
	return &RuleError{Code: code}
}

// playerErr builds a RuleError naming the offending player.
func playerErr(code Code, playerID uuid.UUID) *RuleError {
	return &RuleError{Code: code, PlayerID: playerID}
}

// AsRuleError unwraps err into a *RuleError if it is one.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// InvariantError reports that the engine found persisted state it considers
// impossible, e.g. the turn scan finding no next actor while more than one
// live player remains. It is distinct from RuleError so callers can tell
// "your request was invalid" from "the system is in an unexpected state".
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Msg
}

func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

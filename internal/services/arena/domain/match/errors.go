package match

import (
	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/services/arena/domain/driver"
)

var (
	// ErrConfiguration matches any construction-time configuration error.
	ErrConfiguration = apperrors.New(apperrors.CodeConfigInvalid, "match configuration is invalid")
	// ErrGameModeUnsupported matches a request for an unimplemented mode.
	ErrGameModeUnsupported = apperrors.New(apperrors.CodeGameModeUnsupported, "game mode is not implemented")
	// ErrInvalidOperation matches commands that are not allowed in the
	// current match state.
	ErrInvalidOperation = apperrors.New(apperrors.CodeInvalidOperation, "operation is not allowed")
	// ErrPlayersRequired is returned when fewer than two players are seated.
	ErrPlayersRequired = apperrors.New(apperrors.CodePlayersRequired, "at least two players are required")
	// ErrMatchEnded is returned by commands issued after End.
	ErrMatchEnded = apperrors.New(apperrors.CodeMatchEnded, "match has ended")
	// ErrDriverRunning is returned by manual stepping while the driver runs.
	ErrDriverRunning = driver.ErrRunning
)

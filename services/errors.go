package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrSeriesNameRequired      = errors.New("series name is required")
	ErrSeriesSeasonRequired    = errors.New("series season is required")
	ErrSeriesInvalidStatus     = errors.New("invalid series status provided")
	ErrEventNameRequired       = errors.New("event name is required")
	ErrEventDateRequired       = errors.New("event date is required")
	ErrContestNameRequired     = errors.New("contest name is required")
	ErrContestInvalidYearRange = errors.New("contest birth year range is invalid")
	ErrParticipantNameRequired = errors.New("participant name is required")
	ErrParticipantInvalidBib   = errors.New("participant bib number must be positive")
	ErrRaceInvalidStatus       = errors.New("invalid race status provided")
	ErrOnlyFinishedReorder     = errors.New("only finished participations can be reordered")

	// Ошибки конфликтов
	ErrAssignmentConflict     = errors.New("participant is already assigned to this race")
	ErrSeriesNameConflict     = errors.New("series name already exists for this season")
	ErrParticipantBibConflict = errors.New("bib number already taken in this contest")
	ErrUserEmailConflict      = errors.New("email address is already in use")

	// Ошибки аутентификации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthSessionInvalid     = errors.New("session is invalid or expired")

	// Ошибки, специфичные для сущностей
	ErrSeriesNotFound        = errors.New("series not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrContestNotFound       = errors.New("contest not found")
	ErrRaceNotFound          = errors.New("race not found")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrParticipationNotFound = errors.New("participation not found")

	// Ошибки импорта
	ErrImportFetchFailed = errors.New("failed to fetch external results data")
	ErrImportNoContests  = errors.New("no contests found in external results data")
)

package domain

import (
	"time"

	"github.com/google/uuid"
)

type Vote struct {
	PollID      uuid.UUID `json:"pollId"`
	Voter       string    `json:"voter"`
	OptionIndex int       `json:"optionIndex"`
	CastAt      time.Time `json:"castAt"`
}

package transport

import (
	"time"

	"event_messaging_backend/internal/agenda/service"

	"github.com/google/uuid"
)

type SessionResponse struct {
	ID                uuid.UUID  `json:"id"`
	EventID           uuid.UUID  `json:"eventId"`
	Title             string     `json:"title"`
	Kind              string     `json:"kind"`
	StartsAt          time.Time  `json:"startsAt"`
	EndsAt            time.Time  `json:"endsAt"`
	SpeakerID         *uuid.UUID `json:"speakerId,omitempty"`
	SpeakerName       *string    `json:"speakerName,omitempty"`
	SpeakerCompany    *string    `json:"speakerCompany,omitempty"`
	SpeakerBio        *string    `json:"speakerBio,omitempty"`
	HasSpeakerData    bool       `json:"hasSpeakerData"`
	Synopsis          *string    `json:"synopsis,omitempty"`
	FocusAreas        []string   `json:"focusAreas,omitempty"`
	Takeaways         []string   `json:"takeaways,omitempty"`
	Keywords          []string   `json:"keywords,omitempty"`
	DataRichnessScore float64    `json:"dataRichnessScore"`
}

func ToSessionResponse(v service.SessionView) SessionResponse {
	return SessionResponse{
		ID:                v.ID,
		EventID:           v.EventID,
		Title:             v.Title,
		Kind:              string(v.Kind),
		StartsAt:          v.StartsAt,
		EndsAt:            v.EndsAt,
		SpeakerID:         v.SpeakerID,
		SpeakerName:       v.SpeakerName,
		SpeakerCompany:    v.SpeakerCompany,
		SpeakerBio:        v.SpeakerBio,
		HasSpeakerData:    v.HasSpeakerData,
		Synopsis:          v.Synopsis,
		FocusAreas:        v.FocusAreas,
		Takeaways:         v.Takeaways,
		Keywords:          v.Keywords,
		DataRichnessScore: v.DataRichnessScore,
	}
}

func ToSessionResponses(views []service.SessionView) []SessionResponse {
	out := make([]SessionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, ToSessionResponse(v))
	}
	return out
}

package sponsorship

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

var exportHeader = []string{
	"Session", "Parrain", "Email parrain", "Téléphone parrain",
	"Filleul", "Email filleul", "Téléphone filleul", "Statut",
}

// ExportMatchesCSV writes the matches of a session (all sessions if sessionID is empty) as CSV.
func (svc *service) ExportMatchesCSV(ctx context.Context, sessionID string, w io.Writer) error {
	if sessionID != "" {
		if _, err := svc.repo.GetSession(ctx, sessionID); err != nil {
			return err
		}
	}
	matches, err := svc.repo.QueryMatches(ctx, MatchFilter{SessionID: sessionID})
	if err != nil {
		return errors.Wrap(err, "querying matches")
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, m := range matches {
		status := "Inactif"
		if m.IsActive {
			status = "Actif"
		}
		record := []string{
			m.SessionName,
			m.MentorName, m.MentorEmail, m.MentorPhone,
			m.MenteeName, m.MenteeEmail, m.MenteePhone,
			status,
		}
		if err = cw.Write(record); err != nil {
			return errors.Wrap(err, "writing csv record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

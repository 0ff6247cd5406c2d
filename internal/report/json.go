// Package report renders purge outcomes for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/HerbHall/aciclean/pkg/models"
)

// Output formats accepted by the CLI.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Document is the machine-readable form of a run.
type Document struct {
	Changed bool                `json:"changed"`
	OK      bool                `json:"ok"`
	Error   string              `json:"error,omitempty"`
	Report  *models.PurgeReport `json:"report,omitempty"`
}

// NewDocument combines a report (possibly nil) and the run error.
func NewDocument(r *models.PurgeReport, runErr error) Document {
	doc := Document{Report: r, OK: runErr == nil}
	if r != nil {
		doc.Changed = r.Changed()
	}
	if runErr != nil {
		doc.Error = runErr.Error()
	}
	return doc
}

// WriteJSON writes the run as an indented JSON document.
func WriteJSON(w io.Writer, r *models.PurgeReport, runErr error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(r, runErr)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteList writes endpoint DNs one per line, or as a JSON array.
func WriteList(w io.Writer, dns []models.DN, format string) error {
	switch format {
	case FormatJSON:
		if dns == nil {
			dns = []models.DN{}
		}
		if err := json.NewEncoder(w).Encode(dns); err != nil {
			return fmt.Errorf("encode endpoints: %w", err)
		}
	case FormatText, "":
		for _, dn := range dns {
			if _, err := fmt.Fprintln(w, dn); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

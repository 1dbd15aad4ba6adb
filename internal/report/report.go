// Package report implements C8: the report accumulator from spec.md
// §4.8. Sections are appended by any pipeline stage; at the end of
// each ingestion cycle the accumulator is flushed to whichever sinks
// are configured and always cleared afterward.
package report

import (
	"fmt"
	"io"
	"log/syslog"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// Sink delivers a flushed batch of sections somewhere: the operator
// console, email, or a mirrored syslog stream. Email/syslog delivery
// transport internals are an external collaborator per spec.md §1;
// this package defines the interface, a console sink and a syslog
// mirror, and has no email sink.
type Sink interface {
	Deliver(sections []domain.ReportSection) error
}

// ConsoleSink writes sections to w, used when running in the
// foreground (spec.md §4.8).
type ConsoleSink struct {
	w io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink { return &ConsoleSink{w: w} }

func (c *ConsoleSink) Deliver(sections []domain.ReportSection) error {
	for _, s := range sections {
		fmt.Fprintf(c.w, "%s\n", s.Title)
		for _, item := range s.Items {
			fmt.Fprintf(c.w, "  %s\n", item)
		}
	}
	return nil
}

// SyslogSink mirrors each section to a local syslog daemon, used when
// SYSLOG_REPORT is enabled.
type SyslogSink struct {
	writer *syslog.Writer
}

func NewSyslogSink(tag string) (*SyslogSink, error) {
	w, err := syslog.New(syslog.LOG_NOTICE|syslog.LOG_AUTH, tag)
	if err != nil {
		return nil, fmt.Errorf("connecting to syslog: %w", err)
	}
	return &SyslogSink{writer: w}, nil
}

func (s *SyslogSink) Deliver(sections []domain.ReportSection) error {
	for _, sec := range sections {
		if err := s.writer.Notice(fmt.Sprintf("%s: %v", sec.Title, sec.Items)); err != nil {
			return err
		}
	}
	return nil
}

// Accumulator batches sections until Flush, matching the original
// daemon's Report.add_section/flush contract.
type Accumulator struct {
	logger   zerolog.Logger
	sections []domain.ReportSection
	sinks    []Sink
}

func New(logger zerolog.Logger, sinks ...Sink) *Accumulator {
	return &Accumulator{logger: logger, sinks: sinks}
}

// AddSection appends a titled group of items.
func (a *Accumulator) AddSection(title string, items []string) {
	a.sections = append(a.sections, domain.ReportSection{Title: title, Items: items})
}

// Flush delivers every accumulated section to every configured sink,
// then clears the accumulator regardless of delivery errors (spec.md
// §4.8: "Always clear after flush").
func (a *Accumulator) Flush() error {
	defer func() { a.sections = nil }()

	if len(a.sections) == 0 {
		return nil
	}

	var firstErr error
	for _, sink := range a.sinks {
		if err := sink.Deliver(a.sections); err != nil {
			a.logger.Error().Err(err).Msg("report sink delivery failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Empty reports whether there is nothing pending.
func (a *Accumulator) Empty() bool { return len(a.sections) == 0 }

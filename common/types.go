package common

import (
	"strings"

	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/timespec"
	"github.com/playat/playat/pkg/media"
)

// CreateJobParams is the jobs.create request. It mirrors the web form;
// there is no "now" option because submitted jobs are always handed to
// the OS scheduler.
type CreateJobParams struct {
	Media  string `json:"media"`
	Type   string `json:"type,omitempty"`
	Strict bool   `json:"strict,omitempty"`
	Device string `json:"device,omitempty"`
	Time   string `json:"time,omitempty"`
	Date   string `json:"date,omitempty"`
	At     string `json:"at,omitempty"`
}

// Request converts p into a job.Request.
func (p CreateJobParams) Request() (job.Request, error) {
	var kind media.Kind
	if t := strings.TrimSpace(p.Type); t != "" {
		k, err := media.ParseKind(t)
		if err != nil {
			return job.Request{}, err
		}
		kind = k
	}
	return job.Request{
		Media:  strings.TrimSpace(p.Media),
		Kind:   kind,
		Strict: p.Strict,
		Device: strings.TrimSpace(p.Device),
		Time: timespec.Input{
			Clock: strings.TrimSpace(p.Time),
			Date:  strings.TrimSpace(p.Date),
			At:    strings.TrimSpace(p.At),
		},
	}, nil
}

type JobIDParams struct {
	ID string `json:"id"`
}

type JobResponse struct {
	Job job.Record `json:"job"`
}

type JobsResponse struct {
	Jobs []job.Record `json:"jobs"`
}

type DevicesResponse struct {
	Devices []playback.Device `json:"devices"`
}

type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

package playcli

import (
	"context"

	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/playback"
)

func (c *Client) Version(ctx context.Context) (*common.VersionResponse, error) {
	return call[common.VersionResponse](ctx, c, common.MethodVersion, nil)
}

// CreateJob schedules a job with the server's OS scheduler.
func (c *Client) CreateJob(ctx context.Context, p common.CreateJobParams) (*job.Record, error) {
	resp, err := call[common.JobResponse](ctx, c, common.MethodJobsCreate, p)
	if err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

func (c *Client) ListJobs(ctx context.Context) ([]job.Record, error) {
	resp, err := call[common.JobsResponse](ctx, c, common.MethodJobsList, nil)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *Client) CancelJob(ctx context.Context, id string) (*job.Record, error) {
	resp, err := call[common.JobResponse](ctx, c, common.MethodJobsCancel, common.JobIDParams{ID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Reconcile returns the jobs whose status changed.
func (c *Client) Reconcile(ctx context.Context) ([]job.Record, error) {
	resp, err := call[common.JobsResponse](ctx, c, common.MethodJobsReconcile, nil)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *Client) Devices(ctx context.Context) ([]playback.Device, error) {
	resp, err := call[common.DevicesResponse](ctx, c, common.MethodDevicesList, nil)
	if err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

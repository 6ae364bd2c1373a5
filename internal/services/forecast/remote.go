package forecast

import (
	"context"
	"fmt"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/service"
	"MarketCast/pkg/config"
	xhttp "MarketCast/pkg/http"
)

// Remote delegates training and prediction to an external model
// service over JSON HTTP. It carries a per-instance session id so the
// remote side can keep window-local model state without bleed.
type Remote struct {
	baseURL string
	client  *xhttp.Client
	session string
}

var remoteSession int64

// NewRemote builds a remote forecaster client from config.
func NewRemote(cfg *config.Config) *Remote {
	timeout := cfg.Models.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	remoteSession++
	return &Remote{
		baseURL: cfg.Models.RemoteServiceURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		session: fmt.Sprintf("wf-%d-%d", time.Now().UnixNano(), remoteSession),
	}
}

type remoteMatrix struct {
	Session string      `json:"session"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	Labels  []int       `json:"labels,omitempty"`
}

type remotePredictResp struct {
	Labels []int `json:"labels"`
}

func (r *Remote) Train(ctx context.Context, x *models.Frame, y []models.Label) error {
	payload, err := r.matrix(x)
	if err != nil {
		return err
	}
	payload.Labels = make([]int, len(y))
	for i, l := range y {
		payload.Labels[i] = int(l)
	}
	if err := r.post(ctx, "/model/train", payload, nil); err != nil {
		return fmt.Errorf("remote train: %w", err)
	}
	return nil
}

func (r *Remote) Predict(ctx context.Context, x *models.Frame) ([]models.Label, error) {
	payload, err := r.matrix(x)
	if err != nil {
		return nil, err
	}
	var resp remotePredictResp
	if err := r.post(ctx, "/model/predict", payload, &resp); err != nil {
		return nil, fmt.Errorf("remote predict: %w", err)
	}
	if len(resp.Labels) != x.Len() {
		return nil, fmt.Errorf("remote predict: %d labels for %d rows", len(resp.Labels), x.Len())
	}
	out := make([]models.Label, len(resp.Labels))
	for i, v := range resp.Labels {
		out[i] = models.Label(v)
	}
	return out, nil
}

func (r *Remote) matrix(x *models.Frame) (*remoteMatrix, error) {
	cols := x.Names()
	rows := make([][]float64, x.Len())
	series := make([][]float64, len(cols))
	for j, name := range cols {
		vs, err := x.Col(name)
		if err != nil {
			return nil, err
		}
		series[j] = vs
	}
	for i := range rows {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = series[j][i]
		}
		rows[i] = row
	}
	return &remoteMatrix{Session: r.session, Columns: cols, Rows: rows}, nil
}

func (r *Remote) post(ctx context.Context, path string, payload, dest interface{}) error {
	if r.client == nil || r.baseURL == "" {
		return fmt.Errorf("remote model client not configured")
	}
	return r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
}

var _ service.Forecaster = (*Remote)(nil)

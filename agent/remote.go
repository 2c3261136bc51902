package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rtdp/mdp"
	"rtdp/metrics"
)

type remoteAgent struct {
	url    string
	client *http.Client
}

// NewRemoteAgent returns an agent that asks the server at baseURL for each
// action. A nil client uses http.DefaultClient.
func NewRemoteAgent(baseURL string, client *http.Client) Agent {
	if client == nil {
		client = http.DefaultClient
	}
	return remoteAgent{url: strings.TrimSuffix(baseURL, "/") + "/act", client: client}
}

func (a remoteAgent) FindAction(state mdp.State) (mdp.Action, metrics.SearchMetric, error) {
	body, err := json.Marshal(StateRequest{State: state})
	if err != nil {
		return mdp.NoAction, metrics.SearchMetric{}, err
	}

	resp, err := a.client.Post(a.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return mdp.NoAction, metrics.SearchMetric{}, fmt.Errorf("request action: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return mdp.NoAction, metrics.SearchMetric{}, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, bytes.TrimSpace(out))
	}

	var ar ActionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return mdp.NoAction, metrics.SearchMetric{}, fmt.Errorf("decode action: %w", err)
	}
	return ar.Action, metrics.SearchMetric{
		Duration:  time.Duration(ar.Seconds * float64(time.Second)),
		Trials:    ar.Trials,
		Converged: ar.Converged,
		Lower:     ar.Lower,
		Upper:     ar.Upper,
	}, nil
}

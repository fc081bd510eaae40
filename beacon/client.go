// Package beacon is the typed facade over the beacon node REST API. Every
// call goes through the reliable requester; slot-addressed endpoints report
// a missing block as a first-class missed result rather than an error.
package beacon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beaconwatch/indexer/requester"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "beacon")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTimeout = 2 * time.Minute
	// bulkTimeout bounds the state-wide calls (validators, balances,
	// attestation rewards), which can return hundreds of MB.
	bulkTimeout = 10 * time.Minute
	syncTimeout = 3 * time.Minute
)

// Client issues typed requests against the beacon REST API.
type Client struct {
	req  *requester.Client
	http *http.Client
	now  func() time.Time
}

// NewClient wraps the reliable requester.
func NewClient(rc *requester.Client) *Client {
	return &Client{
		req:  rc,
		http: &http.Client{},
		now:  time.Now,
	}
}

func (c *Client) head() types.Slot {
	return slots.CurrentSlot(c.now())
}

// do issues one HTTP request and decodes the response envelope into out.
// 404 maps to requester.ErrNotFound so the requester can apply its policy.
func (c *Client) do(ctx context.Context, method, baseURL, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Debug("Could not close response body")
		}
	}()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return requester.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, payload)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "could not decode %s response", path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, pool requester.Pool, policy requester.Policy, timeout time.Duration, path string, out interface{}) (bool, error) {
	return c.req.Do(ctx, pool, policy, func(ctx context.Context, baseURL string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.do(ctx, http.MethodGet, baseURL, path, nil, out)
	})
}

func (c *Client) post(ctx context.Context, pool requester.Pool, policy requester.Policy, timeout time.Duration, path string, body, out interface{}) (bool, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return false, errors.Wrap(err, "could not encode request body")
	}
	return c.req.Do(ctx, pool, policy, func(ctx context.Context, baseURL string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.do(ctx, http.MethodPost, baseURL, path, encoded, out)
	})
}

// Committees returns every committee assignment of the epoch.
func (c *Client) Committees(ctx context.Context, epoch types.Epoch) ([]Committee, error) {
	stateSlot := slots.EpochStartSlot(epoch)
	pool := requester.SelectPool(requester.ArchiveNode, stateSlot, c.head())
	path := fmt.Sprintf("/eth/v1/beacon/states/%d/committees?epoch=%d", stateSlot, epoch)
	var resp struct {
		Data []committeeJSON `json:"data"`
	}
	if _, err := c.get(ctx, pool, requester.PropagateErrors, bulkTimeout, path, &resp); err != nil {
		return nil, err
	}
	out := make([]Committee, len(resp.Data))
	for i, cj := range resp.Data {
		committee, err := cj.convert()
		if err != nil {
			return nil, err
		}
		out[i] = committee
	}
	return out, nil
}

// SyncCommittees returns the sync committee active during the epoch.
func (c *Client) SyncCommittees(ctx context.Context, epoch types.Epoch) (SyncCommittee, error) {
	stateSlot := slots.EpochStartSlot(epoch)
	pool := requester.SelectPool(requester.ArchiveNode, stateSlot, c.head())
	path := fmt.Sprintf("/eth/v1/beacon/states/%d/sync_committees?epoch=%d", stateSlot, epoch)
	var resp struct {
		Data syncCommitteeJSON `json:"data"`
	}
	if _, err := c.get(ctx, pool, requester.PropagateErrors, defaultTimeout, path, &resp); err != nil {
		return SyncCommittee{}, err
	}
	return resp.Data.convert()
}

// BlockInfo is the slice of a block the indexer consumes.
type BlockInfo struct {
	ProposerIndex types.ValidatorIndex
	Attestations  []Attestation
}

// Block fetches the block proposed at the slot. missed=true means the slot
// has no block (404).
func (c *Client) Block(ctx context.Context, slot types.Slot) (BlockInfo, bool, error) {
	pool := requester.SelectAttestationPool(slot, c.head())
	path := fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot)
	var resp struct {
		Data struct {
			Message struct {
				ProposerIndex string `json:"proposer_index"`
				Body          struct {
					Attestations []attestationJSON `json:"attestations"`
				} `json:"body"`
			} `json:"message"`
		} `json:"data"`
	}
	missed, err := c.get(ctx, pool, requester.MissedOn404, defaultTimeout, path, &resp)
	if err != nil || missed {
		return BlockInfo{}, missed, err
	}
	proposer, err := parseUint("proposer index", resp.Data.Message.ProposerIndex)
	if err != nil {
		return BlockInfo{}, false, err
	}
	info := BlockInfo{
		ProposerIndex: types.ValidatorIndex(proposer),
		Attestations:  make([]Attestation, len(resp.Data.Message.Body.Attestations)),
	}
	for i, aj := range resp.Data.Message.Body.Attestations {
		att, err := aj.convert()
		if err != nil {
			return BlockInfo{}, false, err
		}
		info.Attestations[i] = att
	}
	return info, false, nil
}

// BlockRewards fetches the proposer's consensus rewards for the slot.
func (c *Client) BlockRewards(ctx context.Context, slot types.Slot) (BlockRewards, bool, error) {
	pool := requester.SelectPool(requester.FullNode, slot, c.head())
	path := fmt.Sprintf("/eth/v1/beacon/rewards/blocks/%d", slot)
	var resp struct {
		Data blockRewardsJSON `json:"data"`
	}
	missed, err := c.get(ctx, pool, requester.MissedOn404, defaultTimeout, path, &resp)
	if err != nil || missed {
		return BlockRewards{}, missed, err
	}
	rewards, err := resp.Data.convert()
	return rewards, false, err
}

// SyncCommitteeRewards fetches per-member sync rewards for the slot.
func (c *Client) SyncCommitteeRewards(ctx context.Context, slot types.Slot, ids []types.ValidatorIndex) ([]SyncCommitteeReward, bool, error) {
	pool := requester.SelectPool(requester.FullNode, slot, c.head())
	path := fmt.Sprintf("/eth/v1/beacon/rewards/sync_committee/%d", slot)
	var resp struct {
		Data []syncCommitteeRewardJSON `json:"data"`
	}
	missed, err := c.post(ctx, pool, requester.MissedOn404, syncTimeout, path, formatIDs(ids), &resp)
	if err != nil || missed {
		return nil, missed, err
	}
	out := make([]SyncCommitteeReward, len(resp.Data))
	for i, rj := range resp.Data {
		reward, err := rj.convert()
		if err != nil {
			return nil, false, err
		}
		out[i] = reward
	}
	return out, false, nil
}

// AttestationRewards fetches ideal and per-validator attestation rewards for
// the epoch. An empty ids list requests all validators.
func (c *Client) AttestationRewards(ctx context.Context, epoch types.Epoch, ids []types.ValidatorIndex) (AttestationRewards, error) {
	pool := requester.SelectPool(requester.ArchiveNode, slots.EpochStartSlot(epoch), c.head())
	path := fmt.Sprintf("/eth/v1/beacon/rewards/attestations/%d", epoch)
	var resp struct {
		Data attestationRewardsJSON `json:"data"`
	}
	if _, err := c.post(ctx, pool, requester.PropagateErrors, bulkTimeout, path, formatIDs(ids), &resp); err != nil {
		return AttestationRewards{}, err
	}
	return resp.Data.convert()
}

// Validators fetches registry entries at the state. Empty ids/statuses mean
// no filter.
func (c *Client) Validators(ctx context.Context, stateSlot types.Slot, ids []types.ValidatorIndex, statuses []string) ([]Validator, error) {
	pool := requester.SelectPool(requester.ArchiveNode, stateSlot, c.head())
	path := fmt.Sprintf("/eth/v1/beacon/states/%d/validators", stateSlot)
	body := struct {
		IDs      []string `json:"ids,omitempty"`
		Statuses []string `json:"statuses,omitempty"`
	}{IDs: formatIDs(ids), Statuses: statuses}
	var resp struct {
		Data []validatorJSON `json:"data"`
	}
	if _, err := c.post(ctx, pool, requester.PropagateErrors, bulkTimeout, path, body, &resp); err != nil {
		return nil, err
	}
	out := make([]Validator, len(resp.Data))
	for i, vj := range resp.Data {
		v, err := vj.convert()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ValidatorBalances fetches balances for the given validators at the state.
func (c *Client) ValidatorBalances(ctx context.Context, stateSlot types.Slot, ids []types.ValidatorIndex) ([]ValidatorBalance, error) {
	pool := requester.SelectPool(requester.ArchiveNode, stateSlot, c.head())
	path := fmt.Sprintf("/eth/v1/beacon/states/%d/validator_balances", stateSlot)
	var resp struct {
		Data []validatorBalanceJSON `json:"data"`
	}
	if _, err := c.post(ctx, pool, requester.PropagateErrors, bulkTimeout, path, formatIDs(ids), &resp); err != nil {
		return nil, err
	}
	out := make([]ValidatorBalance, len(resp.Data))
	for i, bj := range resp.Data {
		b, err := bj.convert()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// ProposerDuties returns the proposer assignment of every slot in the epoch.
func (c *Client) ProposerDuties(ctx context.Context, epoch types.Epoch) ([]ProposerDuty, error) {
	pool := requester.SelectPool(requester.FullNode, slots.EpochStartSlot(epoch), c.head())
	path := fmt.Sprintf("/eth/v1/validator/duties/proposer/%d", epoch)
	var resp struct {
		Data []proposerDutyJSON `json:"data"`
	}
	if _, err := c.get(ctx, pool, requester.PropagateErrors, defaultTimeout, path, &resp); err != nil {
		return nil, err
	}
	out := make([]ProposerDuty, len(resp.Data))
	for i, dj := range resp.Data {
		duty, err := dj.convert()
		if err != nil {
			return nil, err
		}
		out[i] = duty
	}
	return out, nil
}

func formatIDs(ids []types.ValidatorIndex) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%d", id)
	}
	return out
}

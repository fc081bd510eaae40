package beacon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/requester"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/stretchr/testify/require"
)

func newTestServerClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	prev := params.ChainProfile()
	params.OverrideChainProfile(params.MainnetConfig())
	t.Cleanup(func() { params.OverrideChainProfile(prev) })

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rc := requester.New(requester.Options{
		FullNodeURL:       srv.URL,
		ArchiveNodeURL:    srv.URL,
		FullNodeLimit:     2,
		ArchiveNodeLimit:  4,
		RequestsPerSecond: 100,
		Retries:           2,
		InitialBackoff:    time.Millisecond,
	})
	c := NewClient(rc)
	// Pin the head far in the future so pool heuristics are deterministic.
	c.now = func() time.Time { return slots.StartTime(1 << 30) }
	return c
}

func TestCommittees(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/states/3200/committees", r.URL.Path)
		require.Equal(t, "100", r.URL.Query().Get("epoch"))
		_, _ = w.Write([]byte(`{"data":[
			{"index":"3","slot":"3205","validators":["42","7","19"]},
			{"index":"0","slot":"3206","validators":["1"]}
		]}`))
	}))
	committees, err := c.Committees(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, committees, 2)
	require.Equal(t, types.Slot(3205), committees[0].Slot)
	require.Equal(t, types.CommitteeIndex(3), committees[0].Index)
	require.Equal(t, []types.ValidatorIndex{42, 7, 19}, committees[0].Validators)
}

func TestBlock_ParsesAttestations(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v2/beacon/blocks/102", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"message":{"proposer_index":"77","body":{"attestations":[
			{"aggregation_bits":"0x8001","data":{"slot":"100","index":"3"}}
		]}}}}`))
	}))
	info, missed, err := c.Block(context.Background(), 102)
	require.NoError(t, err)
	require.False(t, missed)
	require.Equal(t, types.ValidatorIndex(77), info.ProposerIndex)
	require.Len(t, info.Attestations, 1)
	require.Equal(t, types.Slot(100), info.Attestations[0].Slot)
	require.Equal(t, types.CommitteeIndex(3), info.Attestations[0].Index)
	require.Equal(t, "0x8001", info.Attestations[0].AggregationBits)
}

func TestBlock_MissedSlot(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	_, missed, err := c.Block(context.Background(), 500)
	require.NoError(t, err)
	require.True(t, missed)
}

func TestBlockRewards(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/rewards/blocks/9000", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"proposer_index":"12","total":"45000","attestations":"40000","sync_aggregate":"5000","proposer_slashings":"0","attester_slashings":"0"}}`))
	}))
	rewards, missed, err := c.BlockRewards(context.Background(), 9000)
	require.NoError(t, err)
	require.False(t, missed)
	require.Equal(t, types.ValidatorIndex(12), rewards.ProposerIndex)
	require.Equal(t, types.Gwei(45000), rewards.Total)
	require.Equal(t, types.Gwei(5000), rewards.SyncAggregate)
}

func TestSyncCommitteeRewards_PostsIDs(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body := make([]byte, 64)
		n, _ := r.Body.Read(body)
		require.Contains(t, string(body[:n]), `"5"`)
		_, _ = w.Write([]byte(`{"data":[{"validator_index":"5","reward":"-120"}]}`))
	}))
	rewards, missed, err := c.SyncCommitteeRewards(context.Background(), 9000, []types.ValidatorIndex{5})
	require.NoError(t, err)
	require.False(t, missed)
	require.Len(t, rewards, 1)
	require.Equal(t, types.Gwei(-120), rewards[0].Reward)
}

func TestAttestationRewards(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/rewards/attestations/320", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{
			"ideal_rewards":[{"effective_balance":"32000000000","head":"100","target":"200","source":"150","inactivity":"0"}],
			"total_rewards":[{"validator_index":"42","head":"70","target":"200","source":"150","inactivity":"0"}]
		}}`))
	}))
	rewards, err := c.AttestationRewards(context.Background(), 320, nil)
	require.NoError(t, err)
	require.Len(t, rewards.IdealRewards, 1)
	require.Equal(t, uint64(32000000000), rewards.IdealRewards[0].EffectiveBalance)
	require.Equal(t, types.Gwei(100), rewards.IdealRewards[0].Head)
	require.Len(t, rewards.TotalRewards, 1)
	require.Equal(t, types.Gwei(70), rewards.TotalRewards[0].Head)
}

func TestValidators_MalformedPayload(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":"not-a-number","balance":"1","status":"active_ongoing","validator":{"effective_balance":"1","withdrawal_credentials":"0x"}}]}`))
	}))
	_, err := c.Validators(context.Background(), 100, nil, nil)
	require.Error(t, err)
}

func TestValidatorBalances(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/states/640/validator_balances", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":"9","balance":"32004321000"}]}`))
	}))
	balances, err := c.ValidatorBalances(context.Background(), 640, []types.ValidatorIndex{9})
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, uint64(32004321000), balances[0].Balance)
}

func TestProposerDuties(t *testing.T) {
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/validator/duties/proposer/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"validator_index":"33","slot":"224"}]}`))
	}))
	duties, err := c.ProposerDuties(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, duties, 1)
	require.Equal(t, types.Slot(224), duties[0].Slot)
	require.Equal(t, types.ValidatorIndex(33), duties[0].ValidatorIndex)
}

func TestServerErrorSurfacesAfterRetries(t *testing.T) {
	var hits int
	c := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.ProposerDuties(context.Background(), 7)
	require.Error(t, err)
	require.Equal(t, 2, hits)
}

package app

import (
	"encoding/json"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/discordwell/OnChainPoker-sub002/internal/codec"
)

func (a *OCPApp) deliverTx(txBytes []byte, height int64, nowUnixOpt ...int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}

	// v0: keep state height consistent even in tests that call deliverTx() directly.
	a.st.Height = height
	nowUnix := height
	if len(nowUnixOpt) > 0 {
		nowUnix = nowUnixOpt[0]
	}

	switch env.Type {
	case "auth/register_account":
		return authRegisterAccount(a.st, env)
	case "bank/mint":
		return bankMint(a.st, env)
	case "bank/send":
		return bankSend(a.st, env)

	case "poker/create_table":
		return pokerCreateTable(a.st, env)
	case "poker/sit":
		return pokerSit(a.st, env)
	case "poker/start_hand":
		return pokerStartHand(a.st, env, height, nowUnix)
	case "poker/act":
		return pokerAct(a.st, env)

	case "staking/register_validator":
		var msg codec.StakingRegisterValidatorTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad staking/register_validator value"}
		}
		if err := requireRegisterValidatorAuth(env, msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := stakingRegisterValidator(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "staking/bond":
		var msg codec.StakingBondTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad staking/bond value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ValidatorID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := stakingBond(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "staking/unbond":
		var msg codec.StakingUnbondTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad staking/unbond value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ValidatorID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := stakingUnbond(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "staking/unjail":
		var msg codec.StakingUnjailTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad staking/unjail value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ValidatorID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := stakingUnjail(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/begin_epoch":
		var msg codec.DealerBeginEpochTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/begin_epoch value"}
		}
		ev, err := dealerBeginEpoch(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/dkg_commit":
		var msg codec.DealerDKGCommitTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/dkg_commit value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.DealerID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := dealerDKGCommit(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/dkg_complaint_missing":
		var msg codec.DealerDKGComplaintMissingTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/dkg_complaint_missing value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ComplainerID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := dealerDKGComplaintMissing(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/dkg_complaint_invalid":
		var msg codec.DealerDKGComplaintInvalidTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/dkg_complaint_invalid value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ComplainerID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := dealerDKGComplaintInvalid(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/dkg_share_reveal":
		var msg codec.DealerDKGShareRevealTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/dkg_share_reveal value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.DealerID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		ev, err := dealerDKGShareReveal(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/finalize_epoch":
		var msg codec.DealerFinalizeEpochTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/finalize_epoch value"}
		}
		ev, err := dealerFinalizeEpoch(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/dkg_timeout":
		var msg codec.DealerDKGTimeoutTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/dkg_timeout value"}
		}
		ev, err := dealerDKGTimeout(a.st, msg)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/init_hand":
		var msg codec.DealerInitHandTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/init_hand value"}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerInitHand(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/submit_shuffle":
		var msg codec.DealerSubmitShuffleTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/submit_shuffle value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ShufflerID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerSubmitShuffle(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/finalize_deck":
		var msg codec.DealerFinalizeDeckTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/finalize_deck value"}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerFinalizeDeck(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/submit_pub_share":
		var msg codec.DealerSubmitPubShareTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/submit_pub_share value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ValidatorID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerSubmitPubShare(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/submit_enc_share":
		var msg codec.DealerSubmitEncShareTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/submit_enc_share value"}
		}
		if err := requireValidatorAuth(a.st, env, msg.ValidatorID); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerSubmitEncShare(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/finalize_reveal":
		var msg codec.DealerFinalizeRevealTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/finalize_reveal value"}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerFinalizeReveal(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	case "dealer/timeout":
		var msg codec.DealerTimeoutTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad dealer/timeout value"}
		}
		t := a.st.Tables[msg.TableID]
		if t == nil {
			return &abci.ExecTxResult{Code: 1, Log: "table not found"}
		}
		ev, err := dealerTimeout(a.st, t, msg, nowUnix)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return ev

	default:
		return &abci.ExecTxResult{Code: 1, Log: "unknown tx type: " + env.Type}
	}
}

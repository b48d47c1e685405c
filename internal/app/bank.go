package app

import (
	"encoding/json"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/discordwell/OnChainPoker-sub002/internal/codec"
	"github.com/discordwell/OnChainPoker-sub002/internal/state"
)

func authRegisterAccount(st *state.State, env codec.TxEnvelope) *abci.ExecTxResult {
	var msg codec.AuthRegisterAccountTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad auth/register_account value"}
	}
	if err := requireRegisterAccountAuth(env, msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	// Idempotent registration; key rotation is out of scope for v0.
	if existing := st.AccountKeys[msg.Account]; len(existing) != 0 {
		if string(existing) != string(msg.PubKey) {
			return &abci.ExecTxResult{Code: 1, Log: "account pubKey already set (rotation not supported in v0)"}
		}
		return okEvent("AccountKeyRegistered", map[string]string{
			"account":  msg.Account,
			"existing": "true",
		})
	}
	st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
	return okEvent("AccountKeyRegistered", map[string]string{
		"account": msg.Account,
	})
}

func bankMint(st *state.State, env codec.TxEnvelope) *abci.ExecTxResult {
	var msg codec.BankMintTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad bank/mint value"}
	}
	if msg.To == "" || msg.Amount == 0 {
		return &abci.ExecTxResult{Code: 1, Log: "missing to/amount"}
	}
	st.Credit(msg.To, msg.Amount)
	return okEvent("BankMinted", map[string]string{
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	})
}

func bankSend(st *state.State, env codec.TxEnvelope) *abci.ExecTxResult {
	var msg codec.BankSendTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: "bad bank/send value"}
	}
	if msg.From == "" || msg.To == "" || msg.Amount == 0 {
		return &abci.ExecTxResult{Code: 1, Log: "missing from/to/amount"}
	}
	if err := requireAccountAuth(st, env, msg.From); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	if err := st.Debit(msg.From, msg.Amount); err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		// Restore the debit; it cannot overflow, the amount just left this account.
		_ = st.Credit(msg.From, msg.Amount)
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	return okEvent("BankSent", map[string]string{
		"from":   msg.From,
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	})
}

// Package transferflow reconstructs the ordered (outer-instruction,
// inner-instruction) tree of native and token transfers for a
// transaction, imputing token mints for unchecked transfers via
// pre/post token balance tables.
package transferflow

import "strconv"

// NativeMint is the sentinel mint used for native SOL transfers,
// distinguishing them from wrapped-SOL (wSOL) token transfers which
// carry the real wSOL mint address.
const NativeMint = "So11111111111111111111111111111111111111111"

const (
	systemProgramID   = "11111111111111111111111111111111"
	tokenProgramID    = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// Transfer is one native or token movement extracted from a decoded
// instruction. Amounts are stringly-typed decimals, matching upstream
// RPC number formatting (u64 lamport/token amounts do not round-trip
// losslessly through JSON floats).
type Transfer struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Mint      string `json:"mint"`
	Amount    string `json:"amount"`
}

// OrderedTransfers is the per-transaction output: the flattened,
// strictly-ordered transfer list for one transaction hash.
type OrderedTransfers struct {
	TxHash    string     `json:"tx_hash"`
	Transfers []Transfer `json:"transfers"`
}

// TokenOwnerInfo is the derived, ephemeral (mint, owner) pair observed
// for an account index via pre- or post-token-balance entries.
type TokenOwnerInfo struct {
	Mint         string
	Owner        string
	AccountIndex uint8
}

// InstructionKind discriminates the two program families this
// extractor understands.
type InstructionKind int

const (
	KindSystem InstructionKind = iota
	KindToken
)

// DecodedInstruction is a closed sum type over every instruction
// shape this extractor can turn into a Transfer. Parsing proceeds by
// program id, then by the instruction's "type" discriminator string.
type DecodedInstruction struct {
	Kind InstructionKind

	// System variants (Kind == KindSystem); exactly one is populated,
	// selected by SystemType.
	SystemType             string
	Transfer               *SystemTransfer
	CreateAccount           *SystemCreateAccount
	CreateAccountWithSeed   *SystemCreateAccountWithSeed
	TransferWithSeed        *SystemTransferWithSeed
	WithdrawNonceAccount    *SystemWithdrawNonceAccount

	// Token variants (Kind == KindToken); exactly one is populated,
	// selected by TokenType.
	TokenType        string
	TokenTransfer    *TokenTransferIx
	MintTo           *TokenMintTo
	Burn             *TokenBurn
	TransferChecked  *TokenTransferChecked
	MintToChecked    *TokenMintToChecked
	BurnChecked      *TokenBurnChecked
	CloseAccount     *TokenCloseAccount
}

// System instruction payloads. Field names mirror the JSON-parsed
// RPC "info" object for each instruction type.

type SystemTransfer struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

type SystemCreateAccount struct {
	Source     string `json:"source"`
	NewAccount string `json:"newAccount"`
	Lamports   uint64 `json:"lamports"`
}

type SystemCreateAccountWithSeed struct {
	Source     string `json:"source"`
	NewAccount string `json:"newAccount"`
	Lamports   uint64 `json:"lamports"`
}

// SystemTransferWithSeed and SystemWithdrawNonceAccount carry lamports
// as a string in the upstream RPC encoding (unlike Transfer /
// CreateAccount, which encode it numerically) — preserved here as a
// string field so no numeric round-trip is attempted.
type SystemTransferWithSeed struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    string `json:"lamports"`
}

type SystemWithdrawNonceAccount struct {
	NonceAccount string `json:"nonceAccount"`
	Destination  string `json:"destination"`
	Lamports     string `json:"lamports"`
}

// Token instruction payloads.

type TokenTransferIx struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	// Mint is never present on the raw "transfer" instruction; it is
	// filled in by mint imputation (source account lookup), not by
	// decoding. Nil means "not yet imputed".
	Mint *string `json:"-"`
}

type TokenMintTo struct {
	Account string `json:"account"`
	Mint    string `json:"mint"`
	Amount  string `json:"amount"`
}

type TokenBurn struct {
	Account string `json:"account"`
	Mint    string `json:"mint"`
	Amount  string `json:"amount"`
}

type TokenAmount struct {
	Amount string `json:"amount"`
}

type TokenTransferChecked struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Mint        string      `json:"mint"`
	TokenAmount TokenAmount `json:"tokenAmount"`
}

type TokenMintToChecked struct {
	Account     string      `json:"account"`
	Mint        string      `json:"mint"`
	TokenAmount TokenAmount `json:"tokenAmount"`
}

type TokenBurnChecked struct {
	Account     string      `json:"account"`
	Mint        string      `json:"mint"`
	TokenAmount TokenAmount `json:"tokenAmount"`
}

// TokenCloseAccount's Amount is optional in the upstream encoding.
// When absent, ToTransfer below reports an empty amount string rather than the
// account's full wrapped-native balance at close time; this
// under-reports the true transfer on close but is kept as-is rather
// than resolved by a balance lookup.
type TokenCloseAccount struct {
	Account     string  `json:"account"`
	Destination string  `json:"destination"`
	Amount      *string `json:"amount"`
}

// ToTransfer maps a DecodedInstruction to a Transfer.
func (d DecodedInstruction) ToTransfer() Transfer {
	switch d.Kind {
	case KindSystem:
		switch d.SystemType {
		case "transfer":
			tx := d.Transfer
			return Transfer{Sender: tx.Source, Recipient: tx.Destination, Mint: NativeMint, Amount: uitoa(tx.Lamports)}
		case "createAccount":
			tx := d.CreateAccount
			return Transfer{Sender: tx.Source, Recipient: tx.NewAccount, Mint: NativeMint, Amount: uitoa(tx.Lamports)}
		case "createAccountWithSeed":
			tx := d.CreateAccountWithSeed
			return Transfer{Sender: tx.Source, Recipient: tx.NewAccount, Mint: NativeMint, Amount: uitoa(tx.Lamports)}
		case "transferWithSeed":
			tx := d.TransferWithSeed
			return Transfer{Sender: tx.Source, Recipient: tx.Destination, Mint: NativeMint, Amount: tx.Lamports}
		case "withdrawNonceAccount":
			tx := d.WithdrawNonceAccount
			// nonce accounts hold sol
			return Transfer{Sender: tx.NonceAccount, Recipient: tx.Destination, Mint: NativeMint, Amount: tx.Lamports}
		}
	case KindToken:
		switch d.TokenType {
		case "transfer":
			tx := d.TokenTransfer
			mint := ""
			if tx.Mint != nil {
				mint = *tx.Mint
			}
			return Transfer{Sender: tx.Source, Recipient: tx.Destination, Mint: mint, Amount: tx.Amount}
		case "mintTo":
			tx := d.MintTo
			// mints have no sender, so empty string
			return Transfer{Sender: "", Recipient: tx.Account, Mint: tx.Mint, Amount: tx.Amount}
		case "burn":
			tx := d.Burn
			// burns have no recipient
			return Transfer{Sender: tx.Account, Recipient: "", Mint: tx.Mint, Amount: tx.Amount}
		case "transferChecked":
			tx := d.TransferChecked
			return Transfer{Sender: tx.Source, Recipient: tx.Destination, Mint: tx.Mint, Amount: tx.TokenAmount.Amount}
		case "mintToChecked":
			tx := d.MintToChecked
			return Transfer{Sender: "", Recipient: tx.Account, Mint: tx.Mint, Amount: tx.TokenAmount.Amount}
		case "burnChecked":
			tx := d.BurnChecked
			return Transfer{Sender: tx.Account, Recipient: "", Mint: tx.Mint, Amount: tx.TokenAmount.Amount}
		case "closeAccount":
			tx := d.CloseAccount
			amount := ""
			if tx.Amount != nil {
				amount = *tx.Amount
			}
			// should we use owner here instead?
			// account closure will refund the rent which is always going to be SOL
			// todo: need to figure out the way to handle this when the token account is for wsol
			// for non wsol accounts this will just be the rent
			return Transfer{Sender: tx.Account, Recipient: tx.Destination, Mint: NativeMint, Amount: amount}
		}
	}
	return Transfer{}
}

func uitoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

package transferflow

import "encoding/json"

// ParsedInstruction is the JSON-parsed RPC shape for an instruction
// that the node was able to decode: {programId, program, parsed:
// {type, info}}. Instructions the node could not decode arrive as
// "partiallyDecoded" (programId + accounts + raw data) and are
// skipped here, since any unrecognized type contributes no transfer.
type ParsedInstruction struct {
	ProgramID string          `json:"programId"`
	Parsed    *ParsedPayload  `json:"parsed,omitempty"`
}

type ParsedPayload struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

// DecodeInstruction dispatches strictly by program id, then by the
// instruction's "type" discriminator, producing a DecodedInstruction
// or (nil, nil) when the program/type combination is not one this
// extractor recognizes. Any other program id, any missing "parsed"
// object (partially-decoded instructions), or any unrecognized type
// contributes no transfer.
func DecodeInstruction(raw json.RawMessage) (*DecodedInstruction, error) {
	var ix ParsedInstruction
	if err := json.Unmarshal(raw, &ix); err != nil {
		return nil, err
	}
	if ix.Parsed == nil {
		return nil, nil
	}
	switch ix.ProgramID {
	case systemProgramID:
		return decodeSystemInstruction(ix.Parsed)
	case tokenProgramID, token2022ProgramID:
		return decodeTokenInstruction(ix.Parsed)
	default:
		return nil, nil
	}
}

func decodeSystemInstruction(p *ParsedPayload) (*DecodedInstruction, error) {
	switch p.Type {
	case "transfer":
		var v SystemTransfer
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindSystem, SystemType: p.Type, Transfer: &v}, nil
	case "createAccount":
		var v SystemCreateAccount
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindSystem, SystemType: p.Type, CreateAccount: &v}, nil
	case "createAccountWithSeed":
		var v SystemCreateAccountWithSeed
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindSystem, SystemType: p.Type, CreateAccountWithSeed: &v}, nil
	case "transferWithSeed":
		var v SystemTransferWithSeed
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindSystem, SystemType: p.Type, TransferWithSeed: &v}, nil
	case "withdrawNonceAccount":
		var v SystemWithdrawNonceAccount
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindSystem, SystemType: p.Type, WithdrawNonceAccount: &v}, nil
	default:
		return nil, nil
	}
}

func decodeTokenInstruction(p *ParsedPayload) (*DecodedInstruction, error) {
	switch p.Type {
	case "transfer":
		var v TokenTransferIx
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, TokenTransfer: &v}, nil
	case "mintTo":
		var v TokenMintTo
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, MintTo: &v}, nil
	case "burn":
		var v TokenBurn
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, Burn: &v}, nil
	case "transferChecked":
		var v TokenTransferChecked
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, TransferChecked: &v}, nil
	case "mintToChecked":
		var v TokenMintToChecked
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, MintToChecked: &v}, nil
	case "burnChecked":
		var v TokenBurnChecked
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, BurnChecked: &v}, nil
	case "closeAccount":
		var v TokenCloseAccount
		if err := json.Unmarshal(p.Info, &v); err != nil {
			return nil, err
		}
		return &DecodedInstruction{Kind: KindToken, TokenType: p.Type, CloseAccount: &v}, nil
	default:
		return nil, nil
	}
}

// sourceAccount returns the account this instruction debits from, for
// mint-imputation lookups. Only "transfer" (unchecked token transfer)
// needs imputation; other kinds carry their mint explicitly or have
// no mint concept.
func (d DecodedInstruction) sourceAccount() (string, bool) {
	if d.Kind == KindToken && d.TokenType == "transfer" {
		return d.TokenTransfer.Source, true
	}
	return "", false
}

// imputeMint attaches mint to an unchecked token transfer. It does not
// assert that the source account's mint equals the destination
// account's mint; no such cross-check is performed.
func (d *DecodedInstruction) imputeMint(mint string) {
	if d.Kind == KindToken && d.TokenType == "transfer" {
		m := mint
		d.TokenTransfer.Mint = &m
	}
}

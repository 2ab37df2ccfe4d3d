package repository

import (
	"context"
	"fmt"
)

// UpsertIdl implements the insert-or-update-by-(program_id,
// begin_height) policy for IdlRecord.
func (r *Repository) UpsertIdl(ctx context.Context, rec IdlRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin idl upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM idls WHERE program_id = $1 AND begin_height = $2)`,
		rec.ProgramID, rec.BeginHeight).Scan(&exists)
	if err != nil {
		return fmt.Errorf("repository: failed to query idl: %w", err)
	}

	if !exists {
		if _, err := tx.Exec(ctx,
			`INSERT INTO idls (program_id, begin_height, end_height, idl) VALUES ($1, $2, $3, $4)`,
			rec.ProgramID, rec.BeginHeight, rec.EndHeight, rec.IDL); err != nil {
			return fmt.Errorf("repository: failed to insert idl: %w", err)
		}
	} else {
		// todo: we need to set the end height of the old idl
		if _, err := tx.Exec(ctx,
			`UPDATE idls SET end_height = $3, idl = $4 WHERE program_id = $1 AND begin_height = $2`,
			rec.ProgramID, rec.BeginHeight, rec.EndHeight, rec.IDL); err != nil {
			return fmt.Errorf("repository: failed to update idl: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// UpsertProgram implements the insert-if-absent policy for
// ProgramRecord: an existing row at the same (program_id,
// last_deployed_slot) is left untouched.
func (r *Repository) UpsertProgram(ctx context.Context, rec ProgramRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin program upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM programs WHERE program_id = $1 AND last_deployed_slot = $2)`,
		rec.ProgramID, rec.LastDeployedSlot).Scan(&exists)
	if err != nil {
		return fmt.Errorf("repository: failed to query program: %w", err)
	}
	if exists {
		// program already exists
		return tx.Commit(ctx)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO programs (program_id, last_deployed_slot, executable_account, executable_data) VALUES ($1, $2, $3, $4)`,
		rec.ProgramID, rec.LastDeployedSlot, rec.ExecutableAccount, rec.ExecutableData); err != nil {
		return fmt.Errorf("repository: failed to insert program: %w", err)
	}
	return tx.Commit(ctx)
}

// UpsertSquad stores a multisig account snapshot keyed on account
// pubkey. Unlike IdlRecord/ProgramRecord there is no height-scoped
// history for squad accounts: the latest snapshot simply replaces the
// prior one.
func (r *Repository) UpsertSquad(ctx context.Context, rec SquadRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO squads (account_key, vault_keys, voting_members, threshold, program_version)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (account_key) DO UPDATE SET
		   vault_keys = EXCLUDED.vault_keys,
		   voting_members = EXCLUDED.voting_members,
		   threshold = EXCLUDED.threshold,
		   program_version = EXCLUDED.program_version`,
		rec.AccountKey, rec.VaultKeys, rec.VotingMembers, rec.Threshold, rec.ProgramVersion)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert squad(%s): %w", rec.AccountKey, err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/domain/ccip"
)

// CCIPStore implementation

func (s *Store) CreateLane(ctx context.Context, lane ccip.Lane) (ccip.Lane, error) {
	if lane.ID == "" {
		lane.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lane.CreatedAt = now
	lane.UpdatedAt = now

	signerJSON, err := json.Marshal(lane.SignerSet)
	if err != nil {
		return ccip.Lane{}, err
	}
	tokensJSON, err := json.Marshal(lane.AllowedTokens)
	if err != nil {
		return ccip.Lane{}, err
	}
	policyJSON, err := json.Marshal(lane.DeliveryPolicy)
	if err != nil {
		return ccip.Lane{}, err
	}
	metaJSON, err := json.Marshal(lane.Metadata)
	if err != nil {
		return ccip.Lane{}, err
	}
	tagsJSON, err := json.Marshal(lane.Tags)
	if err != nil {
		return ccip.Lane{}, err
	}
	tenant := s.accountTenant(ctx, lane.AccountID)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_ccip_lanes (id, account_id, name, source_chain, dest_chain, signer_set, allowed_tokens, delivery_policy, metadata, tags, tenant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, lane.ID, lane.AccountID, lane.Name, lane.SourceChain, lane.DestChain, signerJSON, tokensJSON, policyJSON, metaJSON, tagsJSON, tenant, lane.CreatedAt, lane.UpdatedAt)
	if err != nil {
		return ccip.Lane{}, err
	}
	return lane, nil
}

func (s *Store) UpdateLane(ctx context.Context, lane ccip.Lane) (ccip.Lane, error) {
	existing, err := s.GetLane(ctx, lane.ID)
	if err != nil {
		return ccip.Lane{}, err
	}
	lane.AccountID = existing.AccountID
	lane.CreatedAt = existing.CreatedAt
	lane.UpdatedAt = time.Now().UTC()

	signerJSON, err := json.Marshal(lane.SignerSet)
	if err != nil {
		return ccip.Lane{}, err
	}
	tokensJSON, err := json.Marshal(lane.AllowedTokens)
	if err != nil {
		return ccip.Lane{}, err
	}
	policyJSON, err := json.Marshal(lane.DeliveryPolicy)
	if err != nil {
		return ccip.Lane{}, err
	}
	metaJSON, err := json.Marshal(lane.Metadata)
	if err != nil {
		return ccip.Lane{}, err
	}
	tagsJSON, err := json.Marshal(lane.Tags)
	if err != nil {
		return ccip.Lane{}, err
	}
	tenant := s.accountTenant(ctx, lane.AccountID)

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_ccip_lanes
		SET name = $2, source_chain = $3, dest_chain = $4, signer_set = $5, allowed_tokens = $6, delivery_policy = $7, metadata = $8, tags = $9, tenant = $10, updated_at = $11
		WHERE id = $1
	`, lane.ID, lane.Name, lane.SourceChain, lane.DestChain, signerJSON, tokensJSON, policyJSON, metaJSON, tagsJSON, tenant, lane.UpdatedAt)
	if err != nil {
		return ccip.Lane{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ccip.Lane{}, sql.ErrNoRows
	}
	return lane, nil
}

func (s *Store) GetLane(ctx context.Context, id string) (ccip.Lane, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, source_chain, dest_chain, signer_set, allowed_tokens, delivery_policy, metadata, tags, created_at, updated_at
		FROM app_ccip_lanes
		WHERE id = $1
	`, id)

	return scanLane(row)
}

func (s *Store) ListLanes(ctx context.Context, accountID string) ([]ccip.Lane, error) {
	tenant := s.accountTenant(ctx, accountID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, source_chain, dest_chain, signer_set, allowed_tokens, delivery_policy, metadata, tags, created_at, updated_at
		FROM app_ccip_lanes
		WHERE account_id = $1 AND ($2 = '' OR tenant = $2)
		ORDER BY created_at DESC
	`, accountID, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ccip.Lane
	for rows.Next() {
		lane, err := scanLane(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, lane)
	}
	return result, rows.Err()
}

func (s *Store) CreateMessage(ctx context.Context, msg ccip.Message) (ccip.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	payloadJSON, err := json.Marshal(msg.Payload)
	if err != nil {
		return ccip.Message{}, err
	}
	tokensJSON, err := json.Marshal(msg.TokenTransfers)
	if err != nil {
		return ccip.Message{}, err
	}
	traceJSON, err := json.Marshal(msg.Trace)
	if err != nil {
		return ccip.Message{}, err
	}
	metaJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return ccip.Message{}, err
	}
	tagsJSON, err := json.Marshal(msg.Tags)
	if err != nil {
		return ccip.Message{}, err
	}
	tenant := s.accountTenant(ctx, msg.AccountID)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_ccip_messages (id, account_id, lane_id, status, payload, token_transfers, trace, error, metadata, tags, tenant, created_at, updated_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, msg.ID, msg.AccountID, msg.LaneID, msg.Status, payloadJSON, tokensJSON, traceJSON, msg.Error, metaJSON, tagsJSON, tenant, msg.CreatedAt, msg.UpdatedAt, toNullTime(ptrTime(msg.DeliveredAt)))
	if err != nil {
		return ccip.Message{}, err
	}
	return msg, nil
}

func (s *Store) UpdateMessage(ctx context.Context, msg ccip.Message) (ccip.Message, error) {
	existing, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		return ccip.Message{}, err
	}
	msg.AccountID = existing.AccountID
	msg.LaneID = existing.LaneID
	msg.CreatedAt = existing.CreatedAt
	msg.UpdatedAt = time.Now().UTC()

	payloadJSON, err := json.Marshal(msg.Payload)
	if err != nil {
		return ccip.Message{}, err
	}
	tokensJSON, err := json.Marshal(msg.TokenTransfers)
	if err != nil {
		return ccip.Message{}, err
	}
	traceJSON, err := json.Marshal(msg.Trace)
	if err != nil {
		return ccip.Message{}, err
	}
	metaJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return ccip.Message{}, err
	}
	tagsJSON, err := json.Marshal(msg.Tags)
	if err != nil {
		return ccip.Message{}, err
	}
	tenant := s.accountTenant(ctx, msg.AccountID)

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_ccip_messages
		SET status = $2, payload = $3, token_transfers = $4, trace = $5, error = $6, metadata = $7, tags = $8, tenant = $9, updated_at = $10, delivered_at = $11
		WHERE id = $1
	`, msg.ID, msg.Status, payloadJSON, tokensJSON, traceJSON, msg.Error, metaJSON, tagsJSON, tenant, msg.UpdatedAt, toNullTime(ptrTime(msg.DeliveredAt)))
	if err != nil {
		return ccip.Message{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ccip.Message{}, sql.ErrNoRows
	}
	return msg, nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (ccip.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, lane_id, status, payload, token_transfers, trace, error, metadata, tags, created_at, updated_at, delivered_at
		FROM app_ccip_messages
		WHERE id = $1
	`, id)
	return scanMessage(row)
}

func (s *Store) ListMessages(ctx context.Context, accountID string, limit int) ([]ccip.Message, error) {
	tenant := s.accountTenant(ctx, accountID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, lane_id, status, payload, token_transfers, trace, error, metadata, tags, created_at, updated_at, delivered_at
		FROM app_ccip_messages
		WHERE account_id = $1 AND ($2 = '' OR tenant = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, accountID, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ccip.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func scanLane(scanner rowScanner) (ccip.Lane, error) {
	var (
		lane       ccip.Lane
		signerJSON []byte
		tokensJSON []byte
		policyJSON []byte
		metaJSON   []byte
		tagsJSON   []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := scanner.Scan(&lane.ID, &lane.AccountID, &lane.Name, &lane.SourceChain, &lane.DestChain, &signerJSON, &tokensJSON, &policyJSON, &metaJSON, &tagsJSON, &createdAt, &updatedAt); err != nil {
		return ccip.Lane{}, err
	}
	if len(signerJSON) > 0 {
		_ = json.Unmarshal(signerJSON, &lane.SignerSet)
	}
	if len(tokensJSON) > 0 {
		_ = json.Unmarshal(tokensJSON, &lane.AllowedTokens)
	}
	if len(policyJSON) > 0 {
		_ = json.Unmarshal(policyJSON, &lane.DeliveryPolicy)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &lane.Metadata)
	}
	if len(tagsJSON) > 0 {
		_ = json.Unmarshal(tagsJSON, &lane.Tags)
	}
	lane.CreatedAt = createdAt.UTC()
	lane.UpdatedAt = updatedAt.UTC()
	return lane, nil
}

func scanMessage(scanner rowScanner) (ccip.Message, error) {
	var (
		msg         ccip.Message
		payloadJSON []byte
		tokensJSON  []byte
		traceJSON   []byte
		metaJSON    []byte
		tagsJSON    []byte
		createdAt   time.Time
		updatedAt   time.Time
		deliveredAt sql.NullTime
	)
	if err := scanner.Scan(&msg.ID, &msg.AccountID, &msg.LaneID, &msg.Status, &payloadJSON, &tokensJSON, &traceJSON, &msg.Error, &metaJSON, &tagsJSON, &createdAt, &updatedAt, &deliveredAt); err != nil {
		return ccip.Message{}, err
	}
	if len(payloadJSON) > 0 {
		_ = json.Unmarshal(payloadJSON, &msg.Payload)
	}
	if len(tokensJSON) > 0 {
		_ = json.Unmarshal(tokensJSON, &msg.TokenTransfers)
	}
	if len(traceJSON) > 0 {
		_ = json.Unmarshal(traceJSON, &msg.Trace)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &msg.Metadata)
	}
	if len(tagsJSON) > 0 {
		_ = json.Unmarshal(tagsJSON, &msg.Tags)
	}
	msg.CreatedAt = createdAt.UTC()
	msg.UpdatedAt = updatedAt.UTC()
	if deliveredAt.Valid {
		t := deliveredAt.Time.UTC()
		msg.DeliveredAt = &t
	}
	return msg, nil
}

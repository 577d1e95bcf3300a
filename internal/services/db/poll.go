package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/daopoll/pollnode/pkg/poll"
)

type PollDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

// NewPollDB creates a new DB
func NewPollDB(db, rdb *sql.DB, name string) (*PollDB, error) {
	pdb := &PollDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}

	return pdb, nil
}

// CreatePollsTable creates a table to store poll snapshots in the given db
func (db *PollDB) CreatePollsTable(suffix string) error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE t_polls_%s(
		id text NOT NULL PRIMARY KEY,
		creator text NOT NULL,
		subject text NOT NULL,
		description text NOT NULL,
		category text NOT NULL,
		options jsonb NOT NULL,
		status text NOT NULL,
		is_open boolean NOT NULL,
		funding_type smallint NOT NULL,
		reward_distribution smallint NOT NULL,
		target_fund text NOT NULL,
		funds text NOT NULL,
		min_contribution text NOT NULL,
		reward_per_response text NOT NULL,
		max_responses bigint NOT NULL,
		total_responses bigint NOT NULL,
		duration_days bigint NOT NULL,
		end_time timestamp NOT NULL,
		updated_at timestamp NOT NULL
	);
	`, suffix))

	return err
}

// CreateResponsesTable creates a table to store poll responses in the given db
func (db *PollDB) CreateResponsesTable(suffix string) error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE t_poll_responses_%s(
		poll_id text NOT NULL,
		idx integer NOT NULL,
		address text NOT NULL,
		response text NOT NULL,
		is_claimed boolean NOT NULL,
		weight text NOT NULL,
		created_at timestamp NOT NULL,
		reward text NOT NULL,
		PRIMARY KEY (poll_id, idx)
	);
	`, suffix))

	return err
}

// CreateResponsesTableIndexes creates the indexes for poll responses in the given db
func (db *PollDB) CreateResponsesTableIndexes(suffix string) error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE INDEX idx_poll_responses_%s_address ON t_poll_responses_%s (address);
	`, suffix, suffix))
	if err != nil {
		return err
	}

	_, err = db.db.Exec(fmt.Sprintf(`
	CREATE INDEX idx_poll_responses_%s_created_at ON t_poll_responses_%s (created_at);
	`, suffix, suffix))

	return err
}

// SavePolls overwrites the stored snapshot with the given poll set. The
// snapshot is replaced wholesale, never merged.
func (db *PollDB) SavePolls(polls []poll.Poll) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(fmt.Sprintf(`DELETE FROM t_poll_responses_%s;`, db.suffix))
	if err != nil {
		return err
	}

	_, err = tx.Exec(fmt.Sprintf(`DELETE FROM t_polls_%s;`, db.suffix))
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	for _, p := range polls {
		options, err := json.Marshal(p.Options)
		if err != nil {
			return err
		}

		_, err = tx.Exec(fmt.Sprintf(`
		INSERT INTO t_polls_%s(id, creator, subject, description, category, options, status, is_open, funding_type, reward_distribution, target_fund, funds, min_contribution, reward_per_response, max_responses, total_responses, duration_days, end_time, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
		`, db.suffix),
			p.ID.String(), p.Creator, p.Subject, p.Description, p.Category, options, string(p.Status), p.IsOpen, p.FundingType, p.RewardDistribution, amount(p.TargetFund), amount(p.Funds), amount(p.MinContribution), amount(p.RewardPerResponse), p.MaxResponses, p.TotalResponses, p.DurationDays, p.EndTime.UTC(), now)
		if err != nil {
			return err
		}

		for i, r := range p.ResponsesWithAddress {
			_, err = tx.Exec(fmt.Sprintf(`
			INSERT INTO t_poll_responses_%s(poll_id, idx, address, response, is_claimed, weight, created_at, reward)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8);
			`, db.suffix),
				p.ID.String(), i, r.Address, r.Response, r.IsClaimed, amount(r.Weight), r.Timestamp.UTC(), amount(r.Reward))
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadPolls rehydrates the stored snapshot.
func (db *PollDB) LoadPolls() ([]poll.Poll, error) {
	rows, err := db.rdb.Query(fmt.Sprintf(`
	SELECT id, creator, subject, description, category, options, status, is_open, funding_type, reward_distribution, target_fund, funds, min_contribution, reward_per_response, max_responses, total_responses, duration_days, end_time
	FROM t_polls_%s
	ORDER BY id
	`, db.suffix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	polls := []poll.Poll{}
	for rows.Next() {
		var p poll.Poll
		var id, status, targetFund, funds, minContribution, rewardPerResponse string
		var options []byte

		err := rows.Scan(&id, &p.Creator, &p.Subject, &p.Description, &p.Category, &options, &status, &p.IsOpen, &p.FundingType, &p.RewardDistribution, &targetFund, &funds, &minContribution, &rewardPerResponse, &p.MaxResponses, &p.TotalResponses, &p.DurationDays, &p.EndTime)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(options, &p.Options)
		if err != nil {
			return nil, err
		}

		p.ID = parseAmount(id)
		p.Status = poll.ParseStatus(status)
		p.TargetFund = parseAmount(targetFund)
		p.Funds = parseAmount(funds)
		p.MinContribution = parseAmount(minContribution)
		p.RewardPerResponse = parseAmount(rewardPerResponse)

		records, texts, err := db.loadResponses(id)
		if err != nil {
			return nil, err
		}

		p.ResponsesWithAddress = records
		p.Responses = texts

		polls = append(polls, p)
	}

	return polls, rows.Err()
}

func (db *PollDB) loadResponses(pollID string) ([]poll.ResponseRecord, []string, error) {
	rows, err := db.rdb.Query(fmt.Sprintf(`
	SELECT address, response, is_claimed, weight, created_at, reward
	FROM t_poll_responses_%s
	WHERE poll_id = $1
	ORDER BY idx
	`, db.suffix), pollID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	records := []poll.ResponseRecord{}
	texts := []string{}

	for rows.Next() {
		var r poll.ResponseRecord
		var weight, reward string

		err := rows.Scan(&r.Address, &r.Response, &r.IsClaimed, &weight, &r.Timestamp, &reward)
		if err != nil {
			return nil, nil, err
		}

		r.Weight = parseAmount(weight)
		r.Reward = parseAmount(reward)

		records = append(records, r)
		texts = append(texts, r.Response)
	}

	return records, texts, rows.Err()
}

func amount(i *big.Int) string {
	if i == nil {
		return "0"
	}

	return i.String()
}

func parseAmount(s string) *big.Int {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}

	return i
}

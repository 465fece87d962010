package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boardhost/pkg/integration"
	"boardhost/pkg/lobby"
	"boardhost/pkg/persistence"
	"boardhost/pkg/wire"
)

// durableRecord is the YAML-serializable form of Record, persisted under
// <dataDir>/games/<gameId>.yaml.
type durableRecord struct {
	GameID       string                 `yaml:"gameId"`
	GameType     string                 `yaml:"gameType"`
	Seed         int64                  `yaml:"seed"`
	PlayerCount  int                    `yaml:"playerCount"`
	CreatedAt    string                 `yaml:"createdAt"`
	LastActivity string                 `yaml:"lastActivity"`
	GameOptions  map[string]interface{} `yaml:"gameOptions"`
	PlayerIDs    map[int]string         `yaml:"playerIds"`
}

// DurableStore persists sessions to a directory hierarchy of per-gameId
// files: games/<id>.yaml (bookkeeping), actions/<id>.ndjson (append-only
// action log), lobby/<id>.yaml (slot state, absent once started). File
// system access goes through pkg/integration's resilient executor, matching
// every other disk operation in this codebase.
type DurableStore struct {
	games   *persistence.FileStore
	lobby   *persistence.FileStore
	dataDir string
}

// NewDurableStore creates (if needed) the games/, actions/, and lobby/
// subdirectories under dataDir and returns a DurableStore rooted there.
func NewDurableStore(dataDir string) (*DurableStore, error) {
	gamesDir := filepath.Join(dataDir, "games")
	lobbyDir := filepath.Join(dataDir, "lobby")
	actionsDir := filepath.Join(dataDir, "actions")
	if err := os.MkdirAll(actionsDir, 0755); err != nil {
		return nil, fmt.Errorf("store: creating actions dir: %w", err)
	}

	gamesStore, err := persistence.NewFileStore(gamesDir)
	if err != nil {
		return nil, err
	}
	lobbyStore, err := persistence.NewFileStore(lobbyDir)
	if err != nil {
		return nil, err
	}

	return &DurableStore{
		games:   gamesStore,
		lobby:   lobbyStore,
		dataDir: dataDir,
	}, nil
}

var _ GameStore = (*DurableStore)(nil)

func recordFilename(gameID string) string { return gameID + ".yaml" }

func (s *DurableStore) actionsPath(gameID string) string {
	return filepath.Join(s.dataDir, "actions", gameID+".ndjson")
}

func toDurable(rec Record) durableRecord {
	return durableRecord{
		GameID:       rec.GameID,
		GameType:     rec.GameType,
		Seed:         rec.Seed,
		PlayerCount:  rec.PlayerCount,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339Nano),
		LastActivity: rec.LastActivity.Format(time.RFC3339Nano),
		GameOptions:  rec.GameOptions,
		PlayerIDs:    rec.PlayerIDs,
	}
}

func (s *DurableStore) CreateGame(ctx context.Context, rec Record) error {
	filename := recordFilename(rec.GameID)
	if s.games.Exists(filename) {
		return ErrAlreadyExists
	}
	err := integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		if err := s.games.Save(filename, toDurable(rec)); err != nil {
			return err
		}
		if err := os.WriteFile(s.actionsPath(rec.GameID), nil, 0644); err != nil {
			return fmt.Errorf("store: creating action log: %w", err)
		}
		if rec.LobbyState != "" {
			return s.lobby.Save(recordFilename(rec.GameID), rec.LobbySlots)
		}
		return nil
	})
	return err
}

func (s *DurableStore) GetGame(ctx context.Context, gameID string) (Record, []wire.SerializedAction, error) {
	filename := recordFilename(gameID)
	if !s.games.Exists(filename) {
		return Record{}, nil, ErrNotFound
	}

	var dr durableRecord
	var actions []wire.SerializedAction
	var slots []lobby.Slot
	hasLobby := s.lobby.Exists(filename)

	err := integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		if err := s.games.Load(filename, &dr); err != nil {
			return err
		}
		loaded, err := readActionLog(s.actionsPath(gameID))
		if err != nil {
			return err
		}
		actions = loaded
		if hasLobby {
			return s.lobby.Load(filename, &slots)
		}
		return nil
	})
	if err != nil {
		return Record{}, nil, err
	}

	rec, err := fromDurable(dr)
	if err != nil {
		return Record{}, nil, err
	}
	if hasLobby {
		rec.LobbySlots = slots
		rec.LobbyState = string(lobby.StateWaiting)
	}
	return rec, actions, nil
}

func fromDurable(dr durableRecord) (Record, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, dr.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("store: parsing createdAt: %w", err)
	}
	lastActivity, err := time.Parse(time.RFC3339Nano, dr.LastActivity)
	if err != nil {
		return Record{}, fmt.Errorf("store: parsing lastActivity: %w", err)
	}
	return Record{
		GameID:       dr.GameID,
		GameType:     dr.GameType,
		Seed:         dr.Seed,
		PlayerCount:  dr.PlayerCount,
		CreatedAt:    createdAt,
		LastActivity: lastActivity,
		GameOptions:  dr.GameOptions,
		PlayerIDs:    dr.PlayerIDs,
	}, nil
}

func (s *DurableStore) DeleteGame(ctx context.Context, gameID string) error {
	filename := recordFilename(gameID)
	if !s.games.Exists(filename) {
		return ErrNotFound
	}
	return integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		if err := s.games.Delete(filename); err != nil {
			return err
		}
		if s.lobby.Exists(filename) {
			if err := s.lobby.Delete(filename); err != nil {
				return err
			}
		}
		return os.Remove(s.actionsPath(gameID))
	})
}

func (s *DurableStore) ListActive(ctx context.Context) ([]string, error) {
	files, err := s.games.List("*.yaml")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(filepath.Base(f), ".yaml"))
	}
	return ids, nil
}

// AppendAction appends one newline-delimited JSON action record under an
// exclusive file lock and bumps the record's LastActivity. Both writes
// complete or neither does: a failure after the action append but before the
// bookkeeping update is resolved on next GetGame by replaying the log, which
// is authoritative for action count regardless of LastActivity.
func (s *DurableStore) AppendAction(ctx context.Context, gameID string, action wire.SerializedAction) error {
	filename := recordFilename(gameID)
	if !s.games.Exists(filename) {
		return ErrNotFound
	}

	return integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		lock, err := persistence.NewFileLock(s.actionsPath(gameID))
		if err != nil {
			return err
		}
		defer lock.Close()
		if err := lock.Lock(); err != nil {
			return err
		}

		f, err := os.OpenFile(s.actionsPath(gameID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer f.Close()

		line, err := json.Marshal(action)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
		if err := f.Sync(); err != nil {
			return err
		}

		var dr durableRecord
		if err := s.games.Load(filename, &dr); err != nil {
			return err
		}
		dr.LastActivity = time.UnixMilli(action.Timestamp).UTC().Format(time.RFC3339Nano)
		return s.games.Save(filename, dr)
	})
}

func (s *DurableStore) TruncateActions(ctx context.Context, gameID string, fromIndex int) error {
	filename := recordFilename(gameID)
	if !s.games.Exists(filename) {
		return ErrNotFound
	}
	return integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		actions, err := readActionLog(s.actionsPath(gameID))
		if err != nil {
			return err
		}
		if fromIndex < len(actions) {
			actions = actions[:fromIndex]
		}
		return rewriteActionLog(s.actionsPath(gameID), actions)
	})
}

func (s *DurableStore) PersistLobby(ctx context.Context, gameID string, slots []lobby.Slot, state string) error {
	filename := recordFilename(gameID)
	return integration.ExecuteFileSystemOperation(ctx, func(ctx context.Context) error {
		if state == "" {
			if s.lobby.Exists(filename) {
				return s.lobby.Delete(filename)
			}
			return nil
		}
		return s.lobby.Save(filename, slots)
	})
}

// Persist is idempotent for the durable backend too: every mutating call
// above already fsyncs before returning, so this is a cheap existence check.
func (s *DurableStore) Persist(ctx context.Context, gameID string) error {
	if !s.games.Exists(recordFilename(gameID)) {
		return ErrNotFound
	}
	return nil
}

func readActionLog(path string) ([]wire.SerializedAction, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var actions []wire.SerializedAction
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var a wire.SerializedAction
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return nil, fmt.Errorf("store: corrupt action log entry: %w", err)
		}
		actions = append(actions, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

func rewriteActionLog(path string, actions []wire.SerializedAction) error {
	lock, err := persistence.NewFileLock(path)
	if err != nil {
		return err
	}
	defer lock.Close()
	if err := lock.Lock(); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, a := range actions {
		line, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return f.Sync()
}


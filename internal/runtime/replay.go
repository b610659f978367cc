package runtime

import (
	"fmt"

	plog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory"
)

// Mismatch is a journal entry whose recorded outcome replay did not reproduce.
type Mismatch struct {
	Seq    uint64
	Type   string
	Want   string
	Got    string
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq %d %s: %s (journal %s, replay %s)", m.Seq, m.Type, m.Reason, short(m.Want), short(m.Got))
}

func short(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// Replay re-applies entries to start in order. Each entry's digest and
// accept/reject outcome is compared against what replay produces. Replay
// continues past mismatches so every divergence is reported.
func Replay(e *factory.Engine, start factory.State, entries []plog.JournalEntry) (factory.State, []Mismatch, error) {
	st := start
	var out []Mismatch
	for _, je := range entries {
		cmd, err := factory.CommandFromMsg(je.Command)
		if err != nil {
			if je.Command.Type == "" || je.Code == protocol.ErrUnknownCommand {
				// Recorded as unknown; it never changed the state.
				continue
			}
			return st, out, fmt.Errorf("seq %d: %w", je.Seq, err)
		}
		next, aerr := e.Apply(st, cmd)
		if ok := aerr == nil; ok != je.OK {
			out = append(out, Mismatch{Seq: je.Seq, Type: je.Command.Type, Want: je.Digest, Got: next.Digest(),
				Reason: fmt.Sprintf("journal ok=%v, replay ok=%v", je.OK, ok)})
		} else if got := next.Digest(); got != je.Digest {
			out = append(out, Mismatch{Seq: je.Seq, Type: je.Command.Type, Want: je.Digest, Got: got, Reason: "digest differs"})
		}
		st = next
	}
	return st, out, nil
}

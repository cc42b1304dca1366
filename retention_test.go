package advisor_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/gt"
)

func contentsOf(log *advisor.ConversationLog) []string {
	var out []string
	for entry := range log.History() {
		out = append(out, entry.Content)
	}
	return out
}

func TestRetentionEvictsOldest(t *testing.T) {
	policy, err := advisor.NewRetentionPolicy(2)
	gt.NoError(t, err)

	log := advisor.NewConversationLog()
	log.AppendUser("a")
	log.AppendUser("b")
	log.AppendUser("c")

	gt.Equal(t, policy.Apply(log), 1)
	gt.Equal(t, contentsOf(log), []string{"b", "c"})
	for entry := range log.History() {
		gt.Equal(t, entry.Role, advisor.RoleUser)
	}
}

func TestRetentionIdempotent(t *testing.T) {
	policy, err := advisor.NewRetentionPolicy(3)
	gt.NoError(t, err)

	log := advisor.NewConversationLog()
	for i := range 7 {
		log.AppendUser(fmt.Sprint(i))
	}

	gt.Equal(t, policy.Apply(log), 4)
	first := slices.Collect(log.History())
	gt.Equal(t, policy.Apply(log), 0)
	gt.Equal(t, slices.Collect(log.History()), first)
}

func TestRetentionLength(t *testing.T) {
	for _, tc := range []struct {
		total, max int
	}{
		{0, 1}, {1, 1}, {5, 3}, {3, 5}, {20, 20}, {21, 20},
	} {
		t.Run(fmt.Sprintf("total=%d max=%d", tc.total, tc.max), func(t *testing.T) {
			policy, err := advisor.NewRetentionPolicy(tc.max)
			gt.NoError(t, err)

			log := advisor.NewConversationLog()
			var all []string
			for i := range tc.total {
				s := fmt.Sprint(i)
				all = append(all, s)
				if i%2 == 0 {
					log.AppendUser(s)
				} else {
					log.AppendAssistant(s)
				}
			}

			policy.Apply(log)
			want := min(tc.total, tc.max)
			gt.Equal(t, log.Len(), want)
			if want > 0 {
				gt.Equal(t, contentsOf(log), all[tc.total-want:])
			}
		})
	}
}

func TestRetentionRejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := advisor.NewRetentionPolicy(n)
		gt.True(t, errors.Is(err, advisor.ErrInvalidConfig))
	}

	policy, err := advisor.NewRetentionPolicy(advisor.DefaultMaxMessages)
	gt.NoError(t, err)
	gt.Equal(t, policy.MaxMessages(), 20)
}

func TestRetentionLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	policy, err := advisor.NewRetentionPolicy(2, advisor.WithRetentionLogger(logger))
	gt.NoError(t, err)

	log := advisor.NewConversationLog()
	log.AppendUser("a")
	log.AppendUser("b")

	// Within bound: nothing is logged.
	gt.Equal(t, policy.Apply(log), 0)
	gt.Equal(t, buf.String(), "")

	log.AppendUser("c")
	gt.Equal(t, policy.Apply(log), 1)
	gt.Equal(t, policy.Apply(log), 0)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.A(t, lines).Length(1)
	gt.S(t, lines[0]).Contains("optimized memory: removed old messages")
	gt.S(t, lines[0]).Contains("removed=1")
	gt.S(t, lines[0]).Contains("max_messages=2")
}

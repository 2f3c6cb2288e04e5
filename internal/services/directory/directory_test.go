package directory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/testutil"
)

type DirectorySuite struct {
	suite.Suite
	dir *Directory
	ctx context.Context
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.dir = New(testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *DirectorySuite) TestJoinPreservesOrder() {
	s.dir.Join(s.ctx, "r1", "a")
	s.dir.Join(s.ctx, "r1", "b")
	members := s.dir.Join(s.ctx, "r1", "c")

	s.Equal([]model.ParticipantID{"a", "b", "c"}, members)
}

func (s *DirectorySuite) TestJoinIsIdempotent() {
	s.dir.Join(s.ctx, "r1", "a")
	s.dir.Join(s.ctx, "r1", "b")
	members := s.dir.Join(s.ctx, "r1", "a")

	s.Equal([]model.ParticipantID{"a", "b"}, members)
}

func (s *DirectorySuite) TestLeaveTwiceRemovesOnce() {
	s.dir.Join(s.ctx, "r1", "a")
	s.dir.Join(s.ctx, "r1", "b")

	s.Equal([]model.ParticipantID{"b"}, s.dir.Leave(s.ctx, "r1", "a"))
	s.Equal([]model.ParticipantID{"b"}, s.dir.Leave(s.ctx, "r1", "a"))
}

func (s *DirectorySuite) TestLeaveUnknownSession() {
	s.Empty(s.dir.Leave(s.ctx, "nope", "a"))
}

func (s *DirectorySuite) TestParticipantsUnknownSessionIsEmpty() {
	members := s.dir.Participants(s.ctx, "unknown")
	s.NotNil(members)
	s.Empty(members)
}

func (s *DirectorySuite) TestReturnedSliceIsACopy() {
	members := s.dir.Join(s.ctx, "r1", "a")
	members[0] = "mallory"

	s.Equal([]model.ParticipantID{"a"}, s.dir.Participants(s.ctx, "r1"))
}

func (s *DirectorySuite) TestIsMember() {
	s.dir.Join(s.ctx, "r1", "a")

	s.True(s.dir.IsMember(s.ctx, "r1", "a"))
	s.False(s.dir.IsMember(s.ctx, "r1", "b"))
	s.False(s.dir.IsMember(s.ctx, "r2", "a"))
}

func (s *DirectorySuite) TestPurgeRemovesFromEverySession() {
	s.dir.Join(s.ctx, "r1", "a")
	s.dir.Join(s.ctx, "r1", "b")
	s.dir.Join(s.ctx, "r2", "a")
	s.dir.Join(s.ctx, "r3", "b")

	affected := s.dir.Purge(s.ctx, "a")

	s.Equal([]model.SessionID{"r1", "r2"}, affected)
	s.Equal([]model.ParticipantID{"b"}, s.dir.Participants(s.ctx, "r1"))
	s.Empty(s.dir.Participants(s.ctx, "r2"))
	s.Equal([]model.ParticipantID{"b"}, s.dir.Participants(s.ctx, "r3"))
	s.Empty(s.dir.Purge(s.ctx, "a"))
}

func (s *DirectorySuite) TestSessionsOf() {
	s.dir.Join(s.ctx, "r2", "a")
	s.dir.Join(s.ctx, "r1", "a")
	s.dir.Join(s.ctx, "r3", "b")

	s.Equal([]model.SessionID{"r1", "r2"}, s.dir.SessionsOf(s.ctx, "a"))
	s.Empty(s.dir.SessionsOf(s.ctx, "c"))

	s.dir.Leave(s.ctx, "r1", "a")
	s.Equal([]model.SessionID{"r2"}, s.dir.SessionsOf(s.ctx, "a"))
}

func (s *DirectorySuite) TestConcurrentJoinsProduceNoDuplicates() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.dir.Join(s.ctx, "r1", model.ParticipantID(fmt.Sprintf("p%d", i%5)))
		}(i)
	}
	wg.Wait()

	s.Len(s.dir.Participants(s.ctx, "r1"), 5)
}

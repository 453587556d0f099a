//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "idvgate/pkg/platform/audit"
	"idvgate/pkg/platform/audit/store/kafka"
	"idvgate/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
	store  *kafka.Store
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
	store, err := kafka.New([]string{s.broker.Broker}, "idv.audit.test")
	s.Require().NoError(err)
	s.store = store
	s.Require().NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TearDownSuite() {
	s.store.Close()
}

func (s *KafkaStoreSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Require().NoError(s.store.EnsureTopic(ctx, 1, 1), "second create is a no-op")
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		SubjectID: "auth0|abc",
		Action:    string(audit.EventVerificationPassed),
		Decision:  "allow",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics("idv.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("auth0|abc", string(records[0].Key))
	s.Equal(string(audit.EventVerificationPassed), got.Action)
	s.Equal("allow", got.Decision)
}

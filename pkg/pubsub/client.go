package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tutorgoat/tutorgoat-backend/pkg/config"
	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

// Role selects which Pub/Sub resources a process depends on.
type Role int

const (
	// RolePublisher needs the inquiry topic.
	RolePublisher Role = iota
	// RoleSubscriber needs the inquiry subscription.
	RoleSubscriber
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client wraps the v2 client with project-relative resource naming and a
// readiness check over the resources its role needs.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role
}

// NewClient dials Pub/Sub and verifies the resources required by role exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: gcp.ProjectID, cfg: cfg, role: role}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_resources", c.required()), "pubsub client initialized")
	}
	return c, nil
}

// required lists the resource IDs the client's role depends on.
func (c *Client) required() []string {
	var name string
	switch c.role {
	case RoleSubscriber:
		name = c.cfg.InquirySubscription
	default:
		name = c.cfg.InquiryTopic
	}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return []string{trimmed}
	}
	return nil
}

// Ping checks that every resource the role needs exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	names := c.required()
	if len(names) == 0 {
		return fmt.Errorf("pubsub %s name is required", c.kind())
	}
	for _, name := range names {
		var err error
		if c.role == RoleSubscriber {
			_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
				Subscription: c.resourceName("subscriptions", name),
			})
		} else {
			_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
				Topic: c.resourceName("topics", name),
			})
		}
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("%s %q does not exist", c.kind(), name)
		case err != nil:
			return fmt.Errorf("checking %s %q: %w", c.kind(), name, err)
		}
	}
	return nil
}

func (c *Client) kind() string {
	if c.role == RoleSubscriber {
		return "subscription"
	}
	return "topic"
}

// Subscription returns a subscriber for a subscription ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// InquirySubscription returns the subscriber the notifications worker reads from.
func (c *Client) InquirySubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.InquirySubscription)
}

// Publisher returns a publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("topics", name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// InquiryPublisher returns the publisher for inquiry lifecycle events.
func (c *Client) InquiryPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.InquiryTopic)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands an ID into projects/<project>/<collection>/<id>.
// Names already qualified for the collection pass through.
func (c *Client) resourceName(collection, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+collection+"/") {
		return n
	}
	project := strings.TrimSpace(c.projectID)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/" + collection + "/" + n
}

package service

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmBatchLimit is the most tokens one multicast request accepts.
const fcmBatchLimit = 500

// FCMClient sends native (non-Expo) device tokens through Firebase Cloud
// Messaging. Credentials come from a service account JSON file.
type FCMClient struct {
	client *messaging.Client
}

func NewFCMClient(ctx context.Context, projectID, credentialsFile string) (*FCMClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

func (c *FCMClient) Name() string { return "fcm" }

func (c *FCMClient) Send(ctx context.Context, tokens []string, msg PushMessage) error {
	native := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !IsExpoToken(t) {
			native = append(native, t)
		}
	}

	for start := 0; start < len(native); start += fcmBatchLimit {
		end := min(start+fcmBatchLimit, len(native))
		if err := c.sendBatch(ctx, native[start:end], msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *FCMClient) sendBatch(ctx context.Context, tokens []string, msg PushMessage) error {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("send multicast: %w", err)
	}

	log.Printf("[FCM] Sent to %d tokens: %d success, %d failure",
		len(tokens), response.SuccessCount, response.FailureCount)
	for i, resp := range response.Responses {
		if !resp.Success {
			log.Printf("[FCM] Token %d failed: %v", i, resp.Error)
		}
	}
	return nil
}

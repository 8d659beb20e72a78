package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	sent     []*sqs.SendMessageInput
	deleted  []string
	messages []sqstypes.Message
	err      error
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSClientSend(t *testing.T) {
	api := &fakeSQS{}
	client := NewSQSClientWithAPI(api, "https://sqs.local/runs")

	if err := client.Send(context.Background(), Message{Kind: KindReportRun, DocumentID: "doc-1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent = %d", len(api.sent))
	}
	in := api.sent[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/runs" {
		t.Fatalf("queue url = %s", aws.ToString(in.QueueUrl))
	}
	msg, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil || msg.DocumentID != "doc-1" || msg.Version != CurrentVersion {
		t.Fatalf("msg = %+v err = %v", msg, err)
	}
	if aws.ToString(in.MessageAttributes["kind"].StringValue) != KindReportRun {
		t.Fatalf("kind attribute missing")
	}
}

func TestSQSClientSendError(t *testing.T) {
	client := NewSQSClientWithAPI(&fakeSQS{err: errors.New("throttled")}, "q")
	if err := client.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSQSClientReceiveAndDelete(t *testing.T) {
	api := &fakeSQS{messages: []sqstypes.Message{{
		MessageId:     aws.String("m-1"),
		ReceiptHandle: aws.String("r-1"),
		Body:          aws.String(`{"kind":"report.run"}`),
		Attributes:    map[string]string{"ApproximateReceiveCount": "3"},
	}}}
	client := NewSQSClientWithAPI(api, "q")

	got, err := client.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(got) != 1 || got[0].ReceiveCount != 3 || got[0].ReceiptHandle != "r-1" {
		t.Fatalf("deliveries = %+v", got)
	}
	if err := client.Delete(context.Background(), "r-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := client.Delete(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty receipt")
	}
	if len(api.deleted) != 1 {
		t.Fatalf("deleted = %v", api.deleted)
	}
}

package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/jacentio/itemsvc/api"
	"github.com/jacentio/itemsvc/stream"
)

var (
	lambdaCmd = &cobra.Command{
		Use:   "lambda",
		Short: "Run as the API Gateway Lambda function",
		Long:  `Run as an AWS Lambda function behind an API Gateway HTTP API (payload format 2.0). Items are stored in the DynamoDB table named by DYNAMODB_TABLE.`,
		RunE:  runLambda,
	}
	streamCmd = &cobra.Command{
		Use:   "stream",
		Short: "Run as the DynamoDB Streams Lambda function",
		Long:  `Run as an AWS Lambda function subscribed to the items table's stream. Items reclaimed by DynamoDB TTL are logged; other records are skipped.`,
		RunE:  runStream,
	}
)

func runLambda(cmd *cobra.Command, _ []string) error {
	s, err := newDynamoStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	svc := api.NewService(s, logger)
	handler := api.NewLambdaHandler(svc, cfg.StagePrefixes...)

	logger.Info("starting lambda handler",
		"table", cfg.Table,
		"stagePrefixes", cfg.StagePrefixes,
	)
	lambda.Start(handler.Handle)
	return nil
}

func runStream(_ *cobra.Command, _ []string) error {
	handler := stream.NewHandler(nil, logger)

	logger.Info("starting stream handler", "table", cfg.Table)
	lambda.Start(handler.HandleExpired)
	return nil
}

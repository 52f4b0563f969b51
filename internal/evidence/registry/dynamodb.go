package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	id "adjudicator/pkg/domain"
	"adjudicator/pkg/platform/sentinel"
)

// DynamoDBAPI is the subset of the DynamoDB client the registry uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoDBRegistry reads stakeholder profiles from a DynamoDB table keyed by stakeholder_id.
type DynamoDBRegistry struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoDBRegistry(client DynamoDBAPI, tableName string) *DynamoDBRegistry {
	return &DynamoDBRegistry{client: client, tableName: tableName}
}

type priorRefundItem struct {
	Reference     string    `dynamodbav:"reference"`
	Amount        string    `dynamodbav:"amount"`
	RequestedAt   time.Time `dynamodbav:"requested_at"`
	PayoutAccount string    `dynamodbav:"payout_account"`
}

type screeningItem struct {
	ListVersion string    `dynamodbav:"list_version"`
	Outcome     string    `dynamodbav:"outcome"`
	ScreenedAt  time.Time `dynamodbav:"screened_at"`
}

// profileItem is the stored shape. Money is kept as a decimal string.
type profileItem struct {
	StakeholderID        string            `dynamodbav:"stakeholder_id"`
	FullName             string            `dynamodbav:"full_name"`
	DateOfBirth          string            `dynamodbav:"date_of_birth"`
	KYCStatus            string            `dynamodbav:"kyc_status"`
	RiskCategory         string            `dynamodbav:"risk_category"`
	DeclaredAnnualIncome string            `dynamodbav:"declared_annual_income"`
	SourceAccounts       []string          `dynamodbav:"source_accounts"`
	PayoutAccounts       []string          `dynamodbav:"payout_accounts"`
	RefundHistory        []priorRefundItem `dynamodbav:"refund_history"`
	ScreeningHistory     []screeningItem   `dynamodbav:"screening_history"`
}

func (r *DynamoDBRegistry) Lookup(ctx context.Context, stakeholderID id.StakeholderID) (*Profile, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]dynamodbtypes.AttributeValue{
			"stakeholder_id": &dynamodbtypes.AttributeValueMemberS{Value: stakeholderID.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get stakeholder profile: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("stakeholder %s: %w", stakeholderID, sentinel.ErrNotFound)
	}

	var item profileItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal stakeholder profile: %w", err)
	}
	return toProfile(stakeholderID, item)
}

func toProfile(stakeholderID id.StakeholderID, item profileItem) (*Profile, error) {
	income := decimal.Zero
	if item.DeclaredAnnualIncome != "" {
		parsed, err := decimal.NewFromString(item.DeclaredAnnualIncome)
		if err != nil {
			return nil, fmt.Errorf("declared income for %s: %w", stakeholderID, err)
		}
		income = parsed
	}

	p := &Profile{
		StakeholderID:        stakeholderID,
		FullName:             item.FullName,
		DateOfBirth:          item.DateOfBirth,
		KYCStatus:            KYCStatus(item.KYCStatus),
		RiskCategory:         RiskCategory(item.RiskCategory),
		DeclaredAnnualIncome: income,
		SourceAccounts:       toAccounts(item.SourceAccounts),
		PayoutAccounts:       toAccounts(item.PayoutAccounts),
	}
	for _, h := range item.RefundHistory {
		amount, err := decimal.NewFromString(h.Amount)
		if err != nil {
			return nil, fmt.Errorf("refund history %s: %w", h.Reference, err)
		}
		p.RefundHistory = append(p.RefundHistory, PriorRefund{
			Reference:     h.Reference,
			Amount:        amount,
			RequestedAt:   h.RequestedAt,
			PayoutAccount: id.AccountID(h.PayoutAccount),
		})
	}
	for _, s := range item.ScreeningHistory {
		p.ScreeningHistory = append(p.ScreeningHistory, ScreeningEntry(s))
	}
	return p, nil
}

func toAccounts(in []string) []id.AccountID {
	if len(in) == 0 {
		return nil
	}
	out := make([]id.AccountID, len(in))
	for i, a := range in {
		out[i] = id.AccountID(a)
	}
	return out
}

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiate(t *testing.T) {
	client := &fakeClient{response: `{
		"role": "assistant",
		"content": "Hi there! The couch sounds nice. Would you be open to 90?",
		"reasoning": "Anchor below the goal to leave room.",
		"current_offer": 90
	}`}
	a := New(client)

	result, err := a.Negotiate(context.Background(), NegotiationRequest{
		Context: "The seller is selling a couch that is $120, it's blue and in great condition",
		Goal:    "I want to buy a couch for $100",
		Budget:  100,
		History: []Turn{
			{Role: RoleSeller, Content: "Hello! I'm selling a beautiful blue couch for $120."},
		},
	})
	require.Nil(t, err)
	assert.Equal(t, RoleAssistant, result.Turn.Role)
	assert.False(t, result.ConversationEnded)
	require.NotNil(t, result.Turn.Offer)
	assert.Equal(t, 90.0, *result.Turn.Offer)

	// Negotiation params allow varied phrasing
	require.Len(t, client.params, 1)
	assert.Equal(t, 0.7, client.params[0].Temperature)
	assert.Equal(t, 0.9, client.params[0].TopP)
}

func TestNegotiateBudgetViolation(t *testing.T) {
	client := &fakeClient{response: `{"role": "assistant", "content": "I can do 105.", "reasoning": "Meet in the middle.", "current_offer": 105}`}
	a := New(client)

	_, err := a.Negotiate(context.Background(), NegotiationRequest{
		Context: "Couch for $120",
		Goal:    "Buy for $100",
		Budget:  100,
	})
	var violation *ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "exceeds budget ceiling")
}

func TestNegotiateOfferAtBudgetIsAllowed(t *testing.T) {
	client := &fakeClient{response: `{"role": "assistant", "content": "Deal at 100.", "reasoning": "At the ceiling.", "current_offer": 100}`}
	a := New(client)

	result, err := a.Negotiate(context.Background(), NegotiationRequest{Context: "c", Goal: "g", Budget: 100})
	require.Nil(t, err)
	assert.Equal(t, 100.0, *result.Turn.Offer)
}

func TestNegotiateEndingTurn(t *testing.T) {
	client := &fakeClient{response: `{"role": "assistant", "content": "Thank you, all the best!", "reasoning": "No agreement in sight.", "current_offer": null}`}
	a := New(client)

	result, err := a.Negotiate(context.Background(), NegotiationRequest{Context: "c", Goal: "g", Budget: 100})
	require.Nil(t, err)
	assert.True(t, result.ConversationEnded)
}

func TestNegotiateTranscriptInPrompt(t *testing.T) {
	client := &fakeClient{response: `{"content": "Ok!"}`}
	a := New(client)

	history := []Turn{
		{Role: RoleSeller, Content: "Hello! Selling a couch for $120."},
		{Role: RoleAssistant, Content: "Would you take $90?"},
		{Role: RoleSeller, Content: "I could do $95."},
	}
	_, err := a.Negotiate(context.Background(), NegotiationRequest{Context: "c", Goal: "g", Budget: 100, History: history})
	require.Nil(t, err)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "seller: Hello! Selling a couch for $120.\nassistant: Would you take $90?\nseller: I could do $95.")
}

func TestIsEndingMessage(t *testing.T) {
	assert.True(t, IsEndingMessage("Thank you, all the best!"))
	assert.True(t, IsEndingMessage("THANK YOU, ALL THE BEST!"))
	assert.True(t, IsEndingMessage("thank you   all the best"))
	assert.True(t, IsEndingMessage("Amazing, thank you!"))
	assert.True(t, IsEndingMessage("Deal at 90. Amazing, thank you!"))
	assert.False(t, IsEndingMessage("What is the condition?"))
	assert.False(t, IsEndingMessage("Thank you for the details, would you take 90?"))

	// A continuing message that mentions a phrase mid-sentence is not
	// an ending
	assert.False(t, IsEndingMessage("That's amazing, thank you for the details. Would you take 80?"))
	assert.False(t, IsEndingMessage("Thank you, all the best offers start at 90!"))

	// Idempotent: classifying a classified message changes nothing
	msg := "Thank you, all the best!"
	assert.Equal(t, IsEndingMessage(msg), IsEndingMessage(msg))
}

func TestIsAcceptanceMessage(t *testing.T) {
	assert.True(t, IsAcceptanceMessage("Amazing, thank you!"))
	assert.False(t, IsAcceptanceMessage("Thank you, all the best!"))
	assert.False(t, IsAcceptanceMessage("That's amazing, thank you for the details. Would you take 80?"))
}

func TestFlattenTranscriptEmpty(t *testing.T) {
	assert.Equal(t, "", flattenTranscript(nil))
}

func TestNormalizeMessage(t *testing.T) {
	assert.Equal(t, "thank you all the best", normalizeMessage("  Thank You,  ALL the best!! "))
	assert.Equal(t, "90 is fine", normalizeMessage("$90 is fine."))
}

package agent

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"

	"github.com/vesal/haggler/internal/market"
)

const rankPromptTemplate = `
	Given the following request and listings, please return a JSON array of the top %d most relevant listings. Each listing in the array should be a JSON object with %s fields.

	Request: %s

	Listings:
	%s

	Please analyze the request and the available listings. Return only the top %d most relevant listings based on the request, maintaining their original details. Ensure the response is a valid JSON array.
	If none of the listings are relevant to the request, return null.

	Response format:
	[
	%s,
	%s
	]`

const validatePromptTemplate = `
	You are an AI agent tasked with determining whether a list of items fulfills the criteria of a user's original request. You are given the following information:

	The user's original request:
	%s

	Listings:
	%s

	Analyze each item and determine if it matches the user's request. Consider factors such as:

	Does the item's description match the user's request?
	Is the price within the user's goal?
	Does the item meet any specific criteria mentioned in the request?

	For each item, write out your reasoning and return a boolean value:

	1 if the item is relevant to the user's request
	0 if the item is not relevant to the user's request.

	If the item is relevant to the user's request, come up with a first message to the seller. The first message should be brief and concise, while still expressing interest. If the item is not relevant, use "Null" as the first message.

	Return one JSON object per listing, in the same order as the listings above.

	Example output format:
	[
	  {
	    "item_id": "url",
	    "reasoning": "This item matches the user's description and price range.",
	    "relevant": 1,
	    "first_message": "Hi! Is this still available?"
	  },
	  {
	    "item_id": "url",
	    "reasoning": "This item does not match the request.",
	    "relevant": 0,
	    "first_message": "Null"
	  }
	]

	Remember to consider all aspects of the user's request and the item details when making your determination. Respond ONLY with the JSON array.`

const negotiatePromptTemplate = `
	You are a negotiation assistant for second-hand items on a peer-to-peer marketplace. Here's the context and your task:

	Context: %s
	User's Goal: %s

	Previous conversation:
	%s

	Your task is to help the buyer buy an item. The listed price of the item may be higher than the user's goal.
	Keep your responses short and brief.
	Consider the following:
	1. The item's condition and features as described in the context
	2. The user's goal and budget
	3. The current state of the negotiation based on the conversation history

	Provide your next response in the negotiation, aiming to achieve the user's goal. Do not be patronizing.
	You don't have to close the sale in one message--you can send messages back and forth to learn more about the item.
	Do not offer a price above the user's goal. I would be in deep trouble if you did that. Negotiators do not tell people their goal price--you want to go below it a little.
	If the seller agrees to the trade at ANY price below the goal price, accept it.
	If you offer a price, and the seller agrees, you have to pay that price! So do not offer a price above the user's goal.
	End the conversation if you don't think that you'll come to an agreement with the seller. Say "Thank you, all the best!" Do not say anything else.
	If the seller accepts your offer, say "Amazing, thank you!"

	Your response should be in the following JSON format:
	{
	    "role": "assistant",
	    "content": string,
	    "reasoning": string,
	    "current_offer": float or null
	}

	The 'reasoning' field should briefly explain your negotiation strategy and why you chose this response. The 'current_offer' field is the price you are currently offering, or null if you have not made an offer yet.

	Respond ONLY with the JSON object, no markdown or other text.`

func formatPrompt(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func buildRankPrompt(request string, listings []market.Listing, fields []RankField, maxResults int) string {
	var blocks []string
	for _, l := range listings {
		var lines []string
		for _, f := range fields {
			switch f {
			case FieldURL:
				lines = append(lines, "Url: "+l.URL)
			case FieldDescription:
				lines = append(lines, "Item description: "+l.Description)
			case FieldPrice:
				lines = append(lines, fmt.Sprintf("Price: %g", l.Price))
			case FieldImage:
				lines = append(lines, "Image: "+l.ImageURL)
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	var fieldNames []string
	var example []string
	for _, f := range fields {
		fieldNames = append(fieldNames, fmt.Sprintf("'%s'", f))
		switch f {
		case FieldPrice:
			example = append(example, fmt.Sprintf(`"%s": 100.00`, f))
		default:
			example = append(example, fmt.Sprintf(`"%s": "..."`, f))
		}
	}
	exampleObj := "  {" + strings.Join(example, ", ") + "}"

	return formatPrompt(rankPromptTemplate,
		maxResults,
		strings.Join(fieldNames, ", "),
		request,
		strings.Join(blocks, "\n\n"),
		maxResults,
		exampleObj,
		exampleObj,
	)
}

func buildValidatePrompt(request string, listings []market.Listing) string {
	var blocks []string
	for _, l := range listings {
		lines := []string{
			"Url: " + l.URL,
			"Item description: " + l.Description,
			fmt.Sprintf("Price: %g", l.Price),
		}
		if l.ListedPrice != nil {
			lines = append(lines, fmt.Sprintf("Listed price: %g", *l.ListedPrice))
		}
		if l.PublishedAt != nil {
			lines = append(lines, "Published: "+l.PublishedAt.Format("2006-01-02"))
		}
		if l.SellerMessage != "" {
			lines = append(lines, "Seller message: "+l.SellerMessage)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return formatPrompt(validatePromptTemplate, request, strings.Join(blocks, "\n\n"))
}

func buildNegotiatePrompt(context, goal, transcript string) string {
	if transcript == "" {
		transcript = "(no messages yet)"
	}
	return formatPrompt(negotiatePromptTemplate, context, goal, transcript)
}

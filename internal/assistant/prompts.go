package assistant

import "fmt"

func intentPrompt(question string) string {
	return fmt.Sprintf(`Analyze the user's request and classify its intent. The possible intents are:
- 'PRICE_COMPARISON': For any question about the price of an item, cost, or comparing prices.
- 'CREATE_PASS': For any request to generate a grocery list or pass.
- 'GENERAL_QUESTION': For any other question, especially about their past receipts.

User Request: "%s"
Intent:`, question)
}

func receiptScanPrompt(today string) string {
	return fmt.Sprintf(`Analyze this receipt image and extract a JSON object with the following details.
- The "items" field should be a list of all items found on the receipt.
- Each item in the list should be an object with its own "name", "price", and "quantity".
- Also include "purchase_date" and "purchase_place" for the overall receipt.
- If "purchase_date" is missing, use today's date: %s.
- Return ONLY the JSON object without extra text or markdown.

Example format:
{
  "items": [
    { "name": "Milk", "price": 2.50, "quantity": 1 },
    { "name": "Bread", "price": 1.75, "quantity": 2 }
  ],
  "purchase_date": "2025-07-27",
  "purchase_place": "SuperMart"
}`, today)
}

func groceryPassPrompt(request string) string {
	return fmt.Sprintf(`Format the user's grocery list into a JSON object with a list of 'items', each with 'name' and optional 'quantity'.
User request: """%s"""
Return ONLY the JSON object.`, request)
}

func productExtractPrompt(question string) string {
	return fmt.Sprintf(`From the following user question, extract just the name of the product or item they are asking about. For example, from 'how much is an iphone 15 pro max 256gb these days?', extract 'iphone 15 pro max 256gb'.

Question: '%s'`, question)
}

func priceSynthesisPrompt(question, resultsJSON string) string {
	return fmt.Sprintf(`You are a helpful price comparison assistant. A user asked: "%s"
I performed a web search and found these results: %s
Based *only* on these search results, provide a concise answer. Summarize the prices found, mentioning the source website.
If the results do not contain specific prices, state that you couldn't find exact pricing information but can provide the links. Do not make up information.`, question, resultsJSON)
}

func receiptAnswerPrompt(contextJSON, question string) string {
	return fmt.Sprintf(`You are a helpful assistant answering questions about receipts.
Context: %s
User question: %s
Answer based ONLY on the above data.`, contextJSON, question)
}

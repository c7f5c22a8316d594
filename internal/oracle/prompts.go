// File: internal/oracle/prompts.go
package oracle

import "fmt"

func cheaperPrompt(currentPrice float64, title, featureFilter string) string {
	return fmt.Sprintf(`Analyze this e-commerce page screenshot carefully.

Current product: %s
Current price: ₹%.0f
REQUIRED EXACT MATCH: %s

CRITICAL TASK: Find ONLY the EXACT SAME PRODUCT with these specifications that is CHEAPER than ₹%.0f.

STRICT MATCHING RULES:
- MUST have the exact same specifications: %s
- DO NOT include different storage variants (e.g., 128GB vs 256GB)
- DO NOT include different RAM variants (e.g., 6GB vs 8GB RAM)
- DO NOT include different colors
- DO NOT include different models or versions
- ONLY include the EXACT SAME PRODUCT at a lower price

For each EXACT matching cheaper product found, provide:
1. The exact price (numeric value only)
2. The X,Y pixel coordinates where I should tap to open it (center of the product card/image)
3. A brief product title/description

Return ONLY a JSON array with this exact format (no other text):
[
  {"price": 15999, "x": 540, "y": 800, "title": "Product name"},
  {"price": 14500, "x": 540, "y": 1200, "title": "Product name"}
]

If no EXACT matching cheaper products found, return: []`,
		title, currentPrice, featureFilter, currentPrice, featureFilter)
}

func availablePrompt(currentPrice float64, title, featureFilter string) string {
	return fmt.Sprintf(`Analyze this e-commerce page screenshot carefully.

ORIGINAL PRODUCT (OUT OF STOCK): %s
REQUIRED EXACT MATCH: %s
CURRENT PRICE: ₹%.0f

CRITICAL TASK: Find the EXACT SAME PRODUCT that is AVAILABLE (not out of stock) on this page.

STRICT MATCHING RULES:
- MUST have the exact same specifications: %s
- MUST be AVAILABLE (ignore "Out of Stock", "Notify Me", "Currently Unavailable" items)
- Look for "Similar Products", "Other Sellers", "Buy from other sellers" sections
- Prefer products with "Add to Cart" or "Buy Now" buttons visible
- Price should be close to ₹%.0f (can be slightly higher if it's available)

For the EXACT matching AVAILABLE product, provide:
1. The exact price (numeric value only)
2. The X,Y pixel coordinates of the CENTER of the product image/card to click
3. A confidence level (high/medium/low)

Return ONLY a JSON object with this exact format (no other text):
{"price": 15999, "x": 540, "y": 1200, "confidence": "high", "title": "Product name"}

If no EXACT matching AVAILABLE product found, return: {"price": 0, "x": 0, "y": 0, "confidence": "low", "title": ""}`,
		title, featureFilter, currentPrice, featureFilter, currentPrice)
}

func locatePrompt(title, priceText string) string {
	return fmt.Sprintf(`Analyze this e-commerce page screenshot.

TARGET PRODUCT: %s
TARGET PRICE: %s

TASK: Find the main product card/listing for this exact product on the screen.

Look for:
1. Product title matching: %s
2. Price matching or close to: %s
3. The main product image/card (not ads or recommendations)

Provide the X,Y pixel coordinates of the CENTER of the product card/image where I should tap to open the product details page.

Return ONLY a JSON object with this exact format (no other text):
{"x": 540, "y": 800, "confidence": "high"}

If product not clearly visible, return: {"x": 0, "y": 0, "confidence": "low"}`,
		title, priceText, title, priceText)
}

//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

package eval

import "fmt"

// Criterion identifies one evaluation dimension.
type Criterion string

// The four judged criteria.
const (
	CriterionRelevance    Criterion = "relevance"
	CriterionCoherence    Criterion = "coherence"
	CriterionGroundedness Criterion = "groundedness"
	CriterionHelpfulness  Criterion = "helpfulness"
)

// Criteria lists all criteria in the order they are judged.
var Criteria = []Criterion{
	CriterionRelevance,
	CriterionCoherence,
	CriterionGroundedness,
	CriterionHelpfulness,
}

const rubricFormatInstruction = `Return ONLY a JSON object of the form {"score": <float between 0.0 and 1.0>, "reasoning": "<one or two sentences>"} with no additional text.`

// rubricPrompt builds the user prompt for one criterion. Each rubric names
// five anchor points describing what a score in that band means.
func rubricPrompt(criterion Criterion, userQuery, responseText, groundingContext string) string {
	switch criterion {
	case CriterionRelevance:
		return fmt.Sprintf(`Rate how relevant the response is to the user's question.

Scoring anchors:
1.0: directly and completely addresses the question.
0.7: addresses the question but includes unrelated material.
0.5: partially addresses the question.
0.3: only tangentially related to the question.
0.0: entirely unrelated to the question.

Question: %s

Response: %s

%s`, userQuery, responseText, rubricFormatInstruction)
	case CriterionCoherence:
		return fmt.Sprintf(`Rate how coherent and well-structured the response is.

Scoring anchors:
1.0: clear, logically ordered, and easy to follow.
0.7: mostly clear with minor awkwardness.
0.5: understandable but disorganized.
0.3: hard to follow, contradictory in places.
0.0: incoherent.

Response: %s

%s`, responseText, rubricFormatInstruction)
	case CriterionGroundedness:
		return fmt.Sprintf(`Rate how well the response is grounded in the provided context. Claims not supported by the context lower the score.

Scoring anchors:
1.0: every claim is supported by the context.
0.7: mostly supported, with minor unsupported detail.
0.5: a mix of supported and unsupported claims.
0.3: largely unsupported by the context.
0.0: contradicts or ignores the context entirely.

Context: %s

Response: %s

%s`, groundingContext, responseText, rubricFormatInstruction)
	case CriterionHelpfulness:
		return fmt.Sprintf(`Rate how helpful the response is to the user who asked the question.

Scoring anchors:
1.0: fully answers the question with actionable information.
0.7: useful but leaves gaps the user must fill.
0.5: somewhat useful, significant gaps.
0.3: minimally useful.
0.0: useless or misleading.

Question: %s

Response: %s

%s`, userQuery, responseText, rubricFormatInstruction)
	default:
		return fmt.Sprintf(`Rate the response on %q from 0.0 to 1.0.

Response: %s

%s`, string(criterion), responseText, rubricFormatInstruction)
	}
}

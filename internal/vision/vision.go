package vision

import (
	"context"

	"github.com/vbonduro/petalscope/internal/domain"
)

// AnalysisPrompt is the shared prompt used by all backends. It is fixed:
// nothing the user types is ever interpolated into it.
const AnalysisPrompt = `You are a warm, insightful guide for students going through the college application process.
The photo shows a handmade flower the student crafted. Read it like a symbol of their journey.

1. Identify the flower's visual components:
   - the petals: material and color
   - the stem: material
   - the center: any details, textures or decorations
   For each component, give a symbolic, psychologically flavored interpretation of what it says
   about the student and where they are in their college application journey.

2. From those details, infer the student's dominant emotional tone: anxious, ambitious, or creative.
   Recommend a matching set of resources:
   - anxious: stress-management and self-care guidance for the application season
   - ambitious: scholarship search and college essay resources
   - creative: portfolio preparation and arts-program guidance

3. Format the whole answer as rich Markdown: start with a level-one heading that names the flower,
   use level-two headings for each section, bold and italic emphasis for key ideas, and bulleted or
   numbered lists for components and resources. Keep the tone encouraging and kind throughout.`

// FallbackMessage replaces an empty model answer so the user never sees a
// blank result.
const FallbackMessage = `We couldn't put your flower's story into words this time. ` +
	`The care you put into every petal already says a lot about you. Try again for a fresh reading!`

// Backend performs exactly one inference call and returns the model's raw
// text. Errors should already carry a domain.ErrorKind (see BackendError).
type Backend interface {
	Name() string
	Generate(ctx context.Context, req domain.AnalysisRequest) (string, error)
}

// Build pairs image with the fixed prompt. It is deterministic and cannot fail.
func Build(image domain.EncodedImage) domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Image:  image,
		Prompt: AnalysisPrompt,
	}
}

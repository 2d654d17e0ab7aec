package stages

// SystemInstructions frames every stage call.
const SystemInstructions = `You are an expert assistant drafting comprehensive medical protocols.
You generate the protocol in stages, one group of fields at a time, building on the context of previously generated fields.

Principles:

1. Depth over breadth. Focus on the current group and give exhaustive detail rather than superficial coverage.

2. Progressive context. Each group builds on the groups before it. Reference earlier fields and stay consistent with them.

3. Clinical reasoning. Consider multiple clinical scenarios and edge cases, provide evidence-based recommendations with clear rationale, include specific dosages, timelines and objective criteria, and address contraindications and interactions.

4. Structured output. Produce exactly the JSON format requested.

5. Cross-referencing. Reference related fields when relevant (e.g., "Conforme critérios estabelecidos na Seção 5...").

6. Evidence integration. When research findings are provided, integrate them into the relevant fields.

7. Language. All content must be written in Brazilian Portuguese (PT-BR), following Brazilian medical terminology.`

// SummaryInstructions directs the context summary call made before every
// stage after the first.
const SummaryInstructions = `Summarize the key points from the previously generated fields that are most relevant for generating the next group.
Focus on:
1. Established definitions and criteria
2. Key clinical parameters and thresholds
3. Treatment principles already defined
4. Any specific recommendations that need consistency

Keep the summary concise but comprehensive enough to maintain continuity.`

// IntegrationInstructions directs the final consistency pass.
const IntegrationInstructions = `You are reviewing a complete medical protocol for consistency and integration.

Review the complete protocol for:
1. Internal consistency across all fields
2. Completeness of cross-references
3. Logical flow from diagnosis to treatment to monitoring
4. No contradictions between fields
5. Every field properly integrated

CRITICAL: You MUST return the complete protocol in the EXACT SAME JSON FORMAT as provided.
Return a JSON object keyed by field number ("1", "2", ...) containing every field of the protocol, where each key contains an object with:
- "fieldNumber": the field number
- "title": field title (string)
- "content": field content (string or structured object as appropriate)

Do not add or remove fields. Do not add any text before or after the JSON. Return ONLY valid JSON.`

const identificationGuidance = `For these foundational fields:
- Create a comprehensive identification that clearly establishes the protocol's scope and authority
- Never invent names of people. Use placeholders in the technical sheet (e.g., "[Nome do autor principal]") but specify detailed roles and responsibilities
- Provide an exhaustive epidemiological analysis including global and Brazilian prevalence and incidence, risk factors with odds ratios or relative risks when available, demographic variations and regional differences within Brazil
- Define all key concepts with clinical precision, including pathophysiological mechanisms, classification systems with criteria for each category and differential terminology`

const criteriaGuidance = `Building on the foundation fields:
- Create exhaustive inclusion and exclusion criteria with specific thresholds, special population considerations and the hierarchy between criteria
- Detail the initial evaluation with structured anamnesis, physical examination findings, red flags demanding immediate action and risk stratification with clear cut-points
- Provide the diagnostic approach including gold standard and alternative methods, sensitivity and specificity of each test, diagnostic algorithms and interpretation pitfalls

Cross-reference the epidemiological data when discussing risk factors and pre-test probabilities.`

const treatmentGuidance = `Leveraging the diagnostic framework:
- Provide comprehensive treatment protocols including first-line therapies with complete dosing regimens, alternatives for contraindications or failures, treatment duration with clear endpoints, dose adjustments for special populations and drug interactions to monitor
- Detail complication management with early warning signs, preventive strategies, step-by-step management and criteria for escalating care

Include medication tables with drug name, dose, route, frequency, duration, adjustments, contraindications and monitoring.`

const careFlowGuidance = `Building on the treatment framework:
- Define admission and discharge criteria with absolute and relative indications for hospitalization, the required level of care, a discharge safety checklist and follow-up scheduling based on risk
- Create monitoring protocols including vital sign frequency by severity, laboratory schedules, clinical reassessment timelines, patient education before discharge and warning signs that mandate immediate return

Reference treatment responses and complication risks when defining monitoring intensity.`

const qualityGuidance = `Synthesizing all previous fields:
- Provide special considerations for geriatric, pediatric, pregnant and lactating, immunocompromised and multimorbid patients, and for resource-limited settings
- Define quality indicators that are specific, measurable and linked to patient outcomes, including process and outcome measures
- Compile references prioritizing Brazilian and Latin American guidelines, recent international consensus statements and key clinical trials

Ensure the quality indicators measure adherence to the key recommendations of the clinical fields.`

package ai

import (
	"fmt"
	"strings"

	"storycave/backend/internal/models"
)

const interactionSystemPrompt = "You are an AI that generates realistic character interactions for novel writing. " +
	"ALWAYS include atmospheric narrative descriptions that set the scene, describe the environment, and add sensory details. " +
	"Focus on natural dialogue, character development, and rich atmospheric storytelling that contributes to the plot."

const analysisSystemPrompt = "You are an AI that analyzes character interactions. Return only valid JSON."

const narrationSystemPrompt = "You are an AI that generates atmospheric narrative descriptions for novel writing. " +
	"Focus on sensory details, character dynamics, and plot advancement."

const memorySystemPrompt = "You are an AI that generates character memories as key bullet points. Return only valid JSON."

const feelingsSystemPrompt = "You are an AI that analyzes character feelings. Return only valid JSON."

const conversationSystemPrompt = "You are a novelist writing rich, atmospheric scenes. Create natural, plot-driven interactions " +
	"that include dialogue, character actions, environmental descriptions, and atmospheric details. Write like a novel, not just dialogue. " +
	"NO introductions. Vary speakers and include narrative elements. " +
	"Use ONLY these interaction_type values: 'dialogue', 'thought', 'action', 'narration'."

const summarySystemPrompt = "You are a story analyst. Return ONLY valid JSON. Focus on character relationships and developments."

const inspirationSystemPrompt = "You are an AI that generates plot inspiration for novel writing."

const relationshipSystemPrompt = "You are an AI that analyzes character relationships for novel writing."

func orEmpty(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

func sceneBlock(scene models.Scene) string {
	return fmt.Sprintf(`Title: %s
Environment: %s
Context: %s
Weather: %s
Time: %s
Mood: %s`,
		scene.Title, scene.Environment, scene.Context,
		orEmpty(scene.Weather), orEmpty(scene.TimeOfDay), orEmpty(scene.Mood))
}

func characterNames(characters []models.Character) []string {
	names := make([]string, len(characters))
	for i, c := range characters {
		names[i] = c.Name
	}
	return names
}

func buildInteractionPrompt(character models.Character, scene models.Scene, others []models.Character, memoryContext, interactionContext string, maxLength int) string {
	var otherInfo strings.Builder
	for _, c := range others {
		otherInfo.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, truncate(c.Personality, 60)))
	}

	return fmt.Sprintf(`You are %s, a character in a novel. Generate a natural interaction based on the following context:

CHARACTER PROFILE:
Name: %s
Personality: %s
Background: %s
Goals: %s
Fears: %s

SCENE CONTEXT:
%s

OTHER CHARACTERS PRESENT:
%s
MEMORY CONTEXT:
%s

RECENT INTERACTIONS:
%s

INSTRUCTIONS:
Generate a natural interaction that includes:
1. **Dialogue or action** - What %s says or does
2. **Narrative description** - ALWAYS include atmospheric details about the scene, character movements, environmental elements, and sensory details
3. **Character voice** - Make it authentic to %s's personality
4. **Plot advancement** - Include details that move the story forward

Keep it under %d words total. The interaction should feel like a natural part of a novel scene with rich atmospheric details.

Generate the interaction:`,
		character.Name, character.Name, character.Personality, character.Background,
		orEmpty(character.Goals), orEmpty(character.Fears),
		sceneBlock(scene), otherInfo.String(), memoryContext, interactionContext,
		character.Name, character.Name, maxLength)
}

func buildAnalysisPrompt(content string, character models.Character, others []models.Character) string {
	return fmt.Sprintf(`Analyze this character interaction and return a JSON response:

Interaction: %q
Character: %s
Other characters: %s

Return JSON with:
- "type": "dialogue", "thought", "action", or "narration"
- "emotional_state": brief emotional description
- "target_character_id": name of the character being addressed (if any)
- "thoughts": internal thoughts if this is a thought
- "relationship_insights": brief insights about character relationships

JSON response:`,
		content, character.Name, strings.Join(characterNames(others), ", "))
}

func buildNarrationPrompt(scene models.Scene, characters []models.Character, interactionContext, narrationType string) string {
	var present strings.Builder
	for _, c := range characters {
		present.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, truncate(c.Personality, 60)))
	}

	return fmt.Sprintf(`Generate a narrative description for this scene that enhances the atmosphere and contributes to the plot:

SCENE DETAILS:
%s

CHARACTERS PRESENT:
%s
RECENT INTERACTIONS:
%s

NARRATION TYPE: %s

Generate a narrative description that sets the atmospheric tone, shows character dynamics, advances the plot, and builds the emotional atmosphere through sensory details.

Keep it concise but evocative (2-3 sentences). Focus on details that matter to the story.

Narrative description:`,
		sceneBlock(scene), present.String(), interactionContext, narrationType)
}

func buildMemoryPrompt(character models.Character, interaction models.Interaction, scene models.Scene, others []models.Character) string {
	return fmt.Sprintf(`Based on this interaction, generate key bullet points that %s would remember:

Interaction: %q
Type: %s
Emotional State: %s
Scene: %s - %s

Other characters present: %s

Generate 3-5 key bullet points that %s would remember from this interaction. Focus on:
- Important information revealed
- Character behavior or personality traits observed
- Emotional reactions or feelings
- Any revelations or insights

Return JSON with:
- "key_points": the bullet points as a JSON array of strings
- "memory_type": "interaction", "observation", "feeling", or "revelation"
- "emotional_impact": number from -100 to 100
- "related_characters": list of character names involved
- "importance": number from 1-5 (how important this memory is)

JSON response:`,
		character.Name, interaction.Content, interaction.InteractionType,
		orEmpty(interaction.EmotionalState), scene.Title, scene.Context,
		strings.Join(characterNames(others), ", "), character.Name)
}

func buildFeelingsPrompt(character models.Character, interaction models.Interaction, others []models.Character) string {
	return fmt.Sprintf(`Based on this interaction, analyze how %s feels about other characters:

Interaction: %q
Character: %s
Emotional State: %s

Other characters present: %s

Analyze how this interaction affects %s's feelings about each other character present.
Consider their personality, goals, and the nature of the interaction.

Return JSON with an array of feeling updates:
- "target_character_id": name of the character they feel about
- "feeling_type": "trust", "distrust", "affection", "anger", "respect", "fear", "curiosity", etc.
- "intensity": number from -100 to 100 (negative = negative feeling, positive = positive feeling)
- "reason": brief reason for the feeling change

JSON response:`,
		character.Name, interaction.Content, character.Name,
		orEmpty(interaction.EmotionalState),
		strings.Join(characterNames(others), ", "), character.Name)
}

// conversationSetupThreshold separates a conversation's setup stage from its
// plot-progression stage, counted in prior turns.
const conversationSetupThreshold = 10

func buildConversationPrompt(scene models.Scene, characters []models.Character, prior []PriorTurn, window int) string {
	var conversationContext string
	if len(prior) > 0 {
		start := len(prior) - window
		if start < 0 {
			start = 0
		}
		var lines []string
		for _, turn := range prior[start:] {
			lines = append(lines, fmt.Sprintf("%s: %s", turn.CharacterName, turn.Content))
		}
		conversationContext = "\n\nRECENT DIALOGUE:\n" + strings.Join(lines, "\n")
	}

	// Early in a conversation the exchanges establish the scene and
	// character dynamics; later ones push the plot and must not re-introduce
	// anyone.
	numExchanges := "3-5"
	focus := "Develop the scene and establish character dynamics naturally."
	if len(prior) > conversationSetupThreshold {
		numExchanges = "2-4"
		focus = "Continue the plot development and character relationships. Don't repeat introductions."
	}

	return fmt.Sprintf(`Scene: %s - %s
Environment: %s
Characters: %s
%s

Write %s natural interactions that advance the plot and develop character relationships.

IMPORTANT RULES:
- NO introductions or "Hello, I'm [Name]" - characters already know each other
- Vary who speaks - not everyone needs to speak in every round
- Focus on the plot: %s
- Make dialogue natural and character-specific
- Include reactions, questions, plans, revelations
- Build on previous dialogue, don't repeat
- %s

NARRATIVE WRITING STYLE:
You are writing a novel scene, not just dialogue. Interactions may be purely narrative (environment, character actions, atmosphere) without any dialogue, or mix action and speech. Include character expressions, body language, and sensory details.

Return JSON:
[
  {"character_name": "Name", "content": "What they say or do", "interaction_type": "dialogue/thought/action/narration", "emotional_state": "feeling", "target_character_id": "who they're talking to"}
]`,
		scene.Title, scene.Context, scene.Environment,
		strings.Join(characterNames(characters), ", "),
		conversationContext, numExchanges, scene.Context, focus)
}

func buildSummaryPrompt(scene models.Scene, characters []models.Character, lines []string) string {
	return fmt.Sprintf(`Analyze this scene and focus on character relationships and developments:

SCENE: %s
CONTEXT: %s
ENVIRONMENT: %s

CHARACTERS: %s

INTERACTIONS:
%s

Return ONLY valid JSON:
{
  "summary": "brief scene overview",
  "key_events": ["event1", "event2", "event3"],
  "character_developments": {"Character1": "development", "Character2": "development"},
  "relationship_changes": ["relationship change 1", "relationship change 2"],
  "plot_advancement": "how story progresses"
}`,
		scene.Title, scene.Context, scene.Environment,
		strings.Join(characterNames(characters), ", "),
		strings.Join(lines, "\n"))
}

func buildInspirationPrompt(scene models.Scene, characters []models.Character, lines []string) string {
	return fmt.Sprintf(`Based on this scene and character interactions, generate plot inspiration for novel writing:

Scene: %s
Context: %s
Characters: %s

Recent interactions:
%s

Generate 5 plot points or story developments that could emerge from these interactions.
Focus on character development, conflicts, and story progression.

Return as a JSON array of strings.`,
		scene.Title, scene.Context,
		strings.Join(characterNames(characters), ", "),
		strings.Join(lines, "\n"))
}

func buildRelationshipPrompt(character models.Character, others []models.Character, interactionLines, memoryLines []string) string {
	return fmt.Sprintf(`Analyze the relationships between %s and other characters based on their interactions and memories.

Character: %s
Personality: %s

Other characters: %s

Recent interactions:
%s

Recent memories:
%s

Analyze and suggest:
1. Current relationship status with each character
2. Potential relationship developments
3. Character dynamics and conflicts
4. Writing inspiration for relationship arcs

Return JSON with relationship insights.`,
		character.Name, character.Name, character.Personality,
		strings.Join(characterNames(others), ", "),
		strings.Join(interactionLines, "\n"),
		strings.Join(memoryLines, "\n"))
}

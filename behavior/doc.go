/*
Package behavior loads and runs the pursuer's decision tree.

A tree is a binary decision structure: internal nodes test a condition and
leaves name an action. Trees are parsed once from JSON (or YAML with the
same field names):

	{ "type": "DecisionNode", "condition": "DistanceBetweenEntities",
	  "args": ["self", "evader", "2.0", "less"],
	  "trueNode":  { "type": "ActionNode", "action": "Caught" },
	  "falseNode": { "type": "ActionNode", "action": "MoveTowardsTarget" } }

Condition and action identifiers, entity aliases and comparators are closed
sets resolved while loading. A tree that loads cannot fail on an unknown
identifier later; Parse returns a *ConfigError naming the node and field
instead.

Loaded trees are stored in an index arena and never change. An Interpreter
compiles the arena into a go-behaviortree graph once and ticks it each
simulation step. Exactly one action runs per Evaluate call.
*/
package behavior

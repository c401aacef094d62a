package assistantRepository

const (
	queryCreateCommandLog = `
		INSERT INTO command_logs (
			id,
			raw_text,
			source,
			intent_action,
			intent_target,
			intent_parameters,
			intent_confidence,
			result_type,
			result_message,
			audio_url,
			timestamp
		) VALUES (
			:id,
			:raw_text,
			:source,
			:intent_action,
			:intent_target,
			:intent_parameters,
			:intent_confidence,
			:result_type,
			:result_message,
			:audio_url,
			:timestamp
		)
	`

	queryGetRecentCommandLogs = `
		SELECT
			id,
			raw_text,
			source,
			intent_action,
			intent_target,
			intent_parameters,
			intent_confidence,
			result_type,
			result_message,
			audio_url,
			timestamp
		FROM command_logs
		ORDER BY timestamp DESC
		LIMIT :limit
	`

	queryCreateContextMemory = `
		INSERT INTO context_memories (
			id,
			role,
			content,
			timestamp
		) VALUES (
			:id,
			:role,
			:content,
			:timestamp
		)
	`

	queryGetRecentContext = `
		SELECT id, role, content, timestamp
		FROM (
			SELECT id, role, content, timestamp
			FROM context_memories
			ORDER BY timestamp DESC
			LIMIT :limit
		) recent
		ORDER BY timestamp ASC
	`

	querySearchContext = `
		SELECT id, role, content, timestamp
		FROM context_memories
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', :query)
		ORDER BY ts_rank(to_tsvector('english', content), plainto_tsquery('english', :query)) DESC, timestamp DESC
		LIMIT :limit
	`

	queryCreateNote = `
		INSERT INTO notes (
			id,
			content,
			tags,
			created_at,
			updated_at
		) VALUES (
			:id,
			:content,
			:tags,
			:created_at,
			:updated_at
		)
	`

	querySearchNotes = `
		SELECT id, content, tags, created_at, updated_at
		FROM notes
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', :query)
		ORDER BY ts_rank(to_tsvector('english', content), plainto_tsquery('english', :query)) DESC, created_at DESC
		LIMIT :limit
	`

	queryCreateShortcut = `
		INSERT INTO catalog_shortcuts (
			id,
			name,
			description,
			created_at
		) VALUES (
			:id,
			:name,
			:description,
			:created_at
		)
	`

	queryGetShortcuts = `
		SELECT id, name, description, created_at
		FROM catalog_shortcuts
		ORDER BY name ASC
	`

	queryCreateTask = `
		INSERT INTO tasks (
			id,
			title,
			notes,
			is_completed,
			due_date,
			created_at
		) VALUES (
			:id,
			:title,
			:notes,
			:is_completed,
			:due_date,
			:created_at
		)
	`
)

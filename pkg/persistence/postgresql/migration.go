package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Users, roles and memberships
			CREATE TABLE users (
				id VARCHAR(64) PRIMARY KEY,
				user_name VARCHAR(256) NOT NULL,
				email VARCHAR(320) NOT NULL DEFAULT '',
				first_name VARCHAR(256) NOT NULL DEFAULT '',
				last_name VARCHAR(256) NOT NULL DEFAULT '',
				access_token VARCHAR(512),
				admin BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT users_user_name_key UNIQUE (user_name),
				CONSTRAINT users_access_token_key UNIQUE (access_token)
			);

			CREATE TABLE roles (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT roles_name_key UNIQUE (name)
			);

			CREATE TABLE role_members (
				role_id VARCHAR(64) NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
				user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				PRIMARY KEY (role_id, user_id)
			);

			CREATE INDEX idx_role_members_user_id ON role_members(user_id);
		`,
		2: `
			-- Workflows and their ordered stages
			CREATE TABLE workflows (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				creator_id VARCHAR(64) REFERENCES users(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT workflows_name_key UNIQUE (name)
			);

			-- Sequence ids are dense per workflow; the unique key backs the allocator's lock.
			CREATE TABLE stages (
				id VARCHAR(64) PRIMARY KEY,
				workflow_id VARCHAR(64) NOT NULL REFERENCES workflows(id),
				sequence_id INTEGER NOT NULL CHECK (sequence_id > 0),
				name VARCHAR(256) NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				creator_id VARCHAR(64) REFERENCES users(id) ON DELETE SET NULL,
				trigger JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT stages_workflow_sequence_key UNIQUE (workflow_id, sequence_id)
			);
		`,
		3: `
			-- Documents reference stages without being owned by them; deletes clear the
			-- references explicitly before removing stages.
			CREATE TABLE documents (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				comments TEXT NOT NULL DEFAULT '',
				creator_id VARCHAR(64) REFERENCES users(id) ON DELETE SET NULL,
				workflow_id VARCHAR(64) REFERENCES workflows(id),
				stage_id VARCHAR(64) REFERENCES stages(id),
				google_doc_id VARCHAR(256) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_documents_workflow_id ON documents(workflow_id);
			CREATE INDEX idx_documents_stage_id ON documents(stage_id);
		`,
		4: `
			-- Role and user grants on workflows and stages
			CREATE TABLE permission_grants (
				id VARCHAR(64) PRIMARY KEY,
				grantee_type VARCHAR(16) NOT NULL CHECK (grantee_type IN ('role', 'user')),
				grantee_id VARCHAR(64) NOT NULL,
				target_type VARCHAR(16) NOT NULL CHECK (target_type IN ('workflow', 'stage')),
				target_id VARCHAR(64) NOT NULL,
				access SMALLINT NOT NULL CHECK (access >= 0),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT permission_grants_grantee_target_key UNIQUE (grantee_type, grantee_id, target_type, target_id)
			);

			CREATE INDEX idx_permission_grants_target ON permission_grants(target_type, target_id);
		`,
	}
}

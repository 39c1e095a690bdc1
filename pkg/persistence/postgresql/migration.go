package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create documents table
			CREATE TABLE documents (
				key TEXT PRIMARY KEY,
				id TEXT NOT NULL,
				type VARCHAR(255) NOT NULL,
				scope TEXT NOT NULL DEFAULT '',
				rev BIGINT NOT NULL CHECK (rev > 0),
				body JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_documents_scope_type ON documents(scope, type);
			CREATE INDEX idx_documents_id ON documents(id);
		`,
	}
}

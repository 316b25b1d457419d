package titlestore

// titles holds one row per indexed page; norm is the analyzer output and
// norm_len its length in runes. titles_fts is an external-content FTS5 index
// over norm, rebuilt once after bulk loading.
const schema = `
CREATE TABLE titles (
    page_id  INTEGER NOT NULL,
    title    TEXT    NOT NULL,
    norm     TEXT    NOT NULL,
    norm_len INTEGER NOT NULL
);

CREATE VIRTUAL TABLE titles_fts USING fts5(
    norm,
    content='titles',
    content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);
`

// Created after loading so inserts do not maintain them row by row.
const postLoad = `
CREATE INDEX titles_page_id ON titles(page_id);
CREATE INDEX titles_norm_len ON titles(norm_len);
INSERT INTO titles_fts(titles_fts) VALUES('rebuild');
INSERT INTO titles_fts(titles_fts) VALUES('optimize');
`

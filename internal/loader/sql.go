package loader

// Upserts are keyed on each table's natural unique key and written in the
// $N form both backends accept.
const (
	upsertGenre = `INSERT INTO genres (genre, translations) VALUES ($1, $2)
ON CONFLICT (genre) DO UPDATE SET translations = excluded.translations, updated_at = CURRENT_TIMESTAMP`

	upsertCountry = `INSERT INTO countries (iso_code, translations) VALUES ($1, $2)
ON CONFLICT (iso_code) DO UPDATE SET translations = excluded.translations, updated_at = CURRENT_TIMESTAMP`

	upsertLanguage = `INSERT INTO languages (iso_code, native_name, translations) VALUES ($1, $2, $3)
ON CONFLICT (iso_code) DO UPDATE SET native_name = excluded.native_name,
    translations = excluded.translations, updated_at = CURRENT_TIMESTAMP`

	upsertCareer = `INSERT INTO careers (career, translations) VALUES ($1, $2)
ON CONFLICT (career) DO UPDATE SET translations = excluded.translations, updated_at = CURRENT_TIMESTAMP`

	upsertContent = `INSERT INTO content (id, original_title, content_type, poster_url, release_date,
    status, age_rating, budget, box_office)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET original_title = excluded.original_title,
    content_type = excluded.content_type, poster_url = excluded.poster_url,
    release_date = excluded.release_date, status = excluded.status,
    age_rating = excluded.age_rating, budget = excluded.budget,
    box_office = excluded.box_office, updated_at = CURRENT_TIMESTAMP`

	upsertMovieDetails = `INSERT INTO movie_details (content_id, duration_minutes, cinema_release_date, digital_release_date)
VALUES ($1, $2, $3, $4)
ON CONFLICT (content_id) DO UPDATE SET duration_minutes = excluded.duration_minutes,
    cinema_release_date = excluded.cinema_release_date,
    digital_release_date = excluded.digital_release_date, updated_at = CURRENT_TIMESTAMP`

	upsertSeriesDetails = `INSERT INTO series_details (content_id, total_seasons, total_episodes,
    average_episode_duration, end_date, series_status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (content_id) DO UPDATE SET total_seasons = excluded.total_seasons,
    total_episodes = excluded.total_episodes,
    average_episode_duration = excluded.average_episode_duration,
    end_date = excluded.end_date, series_status = excluded.series_status,
    updated_at = CURRENT_TIMESTAMP`

	upsertContentTranslation = `INSERT INTO content_translations (content_id, locale, title, description, plot_summary)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_id, locale) DO UPDATE SET title = excluded.title,
    description = excluded.description, plot_summary = excluded.plot_summary,
    updated_at = CURRENT_TIMESTAMP`

	upsertContentGenre = `INSERT INTO content_genres (content_id, genre_id, display_order) VALUES ($1, $2, $3)
ON CONFLICT (content_id, genre_id) DO UPDATE SET display_order = excluded.display_order`

	upsertContentCountry = `INSERT INTO content_countries (content_id, country_id) VALUES ($1, $2)
ON CONFLICT (content_id, country_id) DO NOTHING`

	upsertSeason = `INSERT INTO seasons (content_id, season_number, poster_url, release_date, episodes_count)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_id, season_number) DO UPDATE SET poster_url = excluded.poster_url,
    release_date = excluded.release_date, episodes_count = excluded.episodes_count,
    updated_at = CURRENT_TIMESTAMP
RETURNING id`

	upsertSeasonTranslation = `INSERT INTO season_translations (season_id, locale, title, description)
VALUES ($1, $2, $3, $4)
ON CONFLICT (season_id, locale) DO UPDATE SET title = excluded.title,
    description = excluded.description, updated_at = CURRENT_TIMESTAMP`

	upsertEpisode = `INSERT INTO episodes (season_id, episode_number, duration_minutes, air_date)
VALUES ($1, $2, $3, $4)
ON CONFLICT (season_id, episode_number) DO UPDATE SET duration_minutes = excluded.duration_minutes,
    air_date = excluded.air_date, updated_at = CURRENT_TIMESTAMP
RETURNING id`

	upsertEpisodeTranslation = `INSERT INTO episode_translations (episode_id, locale, title, description, plot_summary)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (episode_id, locale) DO UPDATE SET title = excluded.title,
    description = excluded.description, plot_summary = excluded.plot_summary,
    updated_at = CURRENT_TIMESTAMP`

	upsertPerson = `INSERT INTO persons (id, original_name, original_lastname, birth_date, death_date,
    gender, country_id, city_id, photo_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET original_name = excluded.original_name,
    original_lastname = excluded.original_lastname, birth_date = excluded.birth_date,
    death_date = excluded.death_date, gender = excluded.gender,
    country_id = excluded.country_id, city_id = excluded.city_id,
    photo_url = excluded.photo_url, updated_at = CURRENT_TIMESTAMP`

	upsertPersonTranslation = `INSERT INTO person_translations (person_id, locale, locale_name, locale_lastname, biography)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (person_id, locale) DO UPDATE SET locale_name = excluded.locale_name,
    locale_lastname = excluded.locale_lastname, biography = excluded.biography,
    updated_at = CURRENT_TIMESTAMP`

	upsertPersonCareer = `INSERT INTO person_careers (person_id, career_id, display_order) VALUES ($1, $2, $3)
ON CONFLICT (person_id, career_id) DO UPDATE SET display_order = excluded.display_order`

	upsertPersonCountry = `INSERT INTO person_countries (person_id, country_id) VALUES ($1, $2)
ON CONFLICT (person_id, country_id) DO NOTHING`
)
